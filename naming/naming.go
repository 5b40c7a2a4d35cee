// Package naming derives canonical archive names and paths from photo
// metadata. All functions are pure: the same record and overrides
// always produce the same name.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/cardimport/cardimport/fserrors"
	"github.com/cardimport/cardimport/meta"
)

const (
	// truncMarker is appended when a name has to be forcibly cut to fit
	// the filesystem limit.
	truncMarker = "---"

	// dateOverhead is the length of the "/YYYY/YYYY-mm-dd/" folder
	// component of a canonical path.
	dateOverhead = 17

	// truncOverhead reserves room for the truncation marker and the
	// extension separator.
	truncOverhead = 4
)

// Overrides supplies individual name fields explicitly instead of
// reading them from the record. Zero values mean "use the record".
type Overrides struct {
	Number        string
	Date          string // already formatted as YYYYMMDD
	Camera        string
	Lens          string
	ExposureBias  string
	ExposureValue string
	Brightness    string
	ISO           string
	ShutterSpeed  string
	Extension     string
}

// Namer builds canonical names and paths below an archive root.
type Namer struct {
	// Root is the archive root the dated folders live under.
	Root string

	// Limit is the maximum byte length of a full path, 254 in the
	// reference deployment.
	Limit int
}

// Name generates the canonical file name for rec.
//
// The full form is
//
//	{YYYYMMDD}_{camera}_{number}_{bias}EB_{value}EV_{brightness}B_{iso}ISO_{shutter}SS_{lens}.{ext}
//
// and the short form, used only as a path-length fallback, keeps the
// sequence number and exposure fields:
//
//	{number}_{bias}EB_{value}EV_{brightness}B.{ext}
//
// A missing capture date renders as 00000000 and a missing shutter
// speed as the placeholder SS. Every "." in the
// assembled name is replaced by a space so the only dot left is the
// extension separator.
func (n *Namer) Name(rec *meta.Record, short bool, o Overrides) string {
	number := pick(o.Number, rec.Number)
	bias := pick(o.ExposureBias, rec.ExposureBias)
	value := pick(o.ExposureValue, rec.ExposureValue)
	brightness := pick(o.Brightness, rec.Brightness)
	ext := pick(o.Extension, rec.Extension)

	var name string
	if short {
		name = fmt.Sprintf("%s_%sEB_%sEV_%sB", number, bias, value, brightness)
	} else {
		date := o.Date
		if date == "" {
			if rec.Date == nil {
				date = "00000000"
			} else {
				date = rec.Date.Format("20060102")
			}
		}
		camera := pick(o.Camera, rec.Camera)
		iso := pick(o.ISO, rec.ISO)
		shutter := pick(o.ShutterSpeed, rec.ShutterSpeed)
		if shutter == "" {
			// An unknown shutter speed renders as the SS placeholder,
			// so the segment reads SSSS.
			shutter = "SS"
		}
		lens := pick(o.Lens, rec.Lens)
		name = fmt.Sprintf("%s_%s_%s_%sEB_%sEV_%sB_%sISO_%sSS_%s",
			date, camera, number, bias, value, brightness, iso, shutter, lens)
	}

	// Decimal points in exposure values would be ambiguous with the
	// extension separator.
	name = strings.ReplaceAll(name, ".", " ")

	return name + "." + ext
}

// Path generates the canonical destination path for rec:
//
//	{root}/{YYYY}/{YYYY-mm-dd}/{name}
//
// preferring the full name, then the short name, then the short name
// truncated with a marker, so the result never exceeds Limit. When not
// even a truncated name fits, Path returns ErrPathTooLong.
func (n *Namer) Path(rec *meta.Record) (string, error) {
	budget := n.Limit - len(n.Root) - len(rec.Extension) - truncOverhead - dateOverhead
	if budget < 1 {
		return "", errors.Wrapf(fserrors.ErrPathTooLong, "archive root %q", n.Root)
	}

	name := n.Name(rec, false, Overrides{})
	if len(name) > budget {
		name = n.Name(rec, true, Overrides{})
		if len(name) > budget {
			base := strings.TrimSuffix(name, "."+rec.Extension)
			if len(base) > budget {
				base = base[:budget]
			}
			name = base + truncMarker + "." + rec.Extension
		}
	}

	year, date := "0000", "0000-00-00"
	if rec.Date != nil {
		year = rec.Date.Format("2006")
		date = rec.Date.Format("2006-01-02")
	}
	return filepath.Join(n.Root, year, date, name), nil
}

func pick(override, value string) string {
	if override != "" {
		return override
	}
	return value
}
