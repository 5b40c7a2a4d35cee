package meta

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// ExifSource extracts Records from files using their embedded EXIF
// data. Files without readable EXIF (sidecars, videos, corrupt headers)
// still yield a usable record with the attribute fields left empty.
type ExifSource struct {
	Log logrus.FieldLogger
}

var _ Source = (*ExifSource)(nil)

// Extract builds a Record for the file at path.
func (s *ExifSource) Extract(path string) (*Record, error) {
	rec := &Record{
		SourcePath: path,
		Extension:  Ext(path),
		Number:     NumberFromName(filepath.Base(path)),
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	x, err := exif.Decode(f)
	if err != nil {
		if s.Log != nil {
			s.Log.WithField("file", path).Debugf("no exif data: %v", err)
		}
		return rec, nil
	}

	if t, err := x.DateTime(); err == nil {
		rec.Date = timePtr(t)
	}
	rec.Camera = stringField(x, exif.Model)
	rec.Lens = stringField(x, exif.LensModel)
	rec.ExposureBias = ratField(x, exif.ExposureBiasValue)
	rec.Brightness = ratField(x, exif.BrightnessValue)
	rec.ExposureValue = ratField(x, exif.ShutterSpeedValue)
	rec.ISO = intField(x, exif.ISOSpeedRatings)
	rec.ShutterSpeed = fractionField(x, exif.ExposureTime)

	return rec, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	v, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func intField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	v, err := tag.Int(0)
	if err != nil {
		return ""
	}
	return strconv.Itoa(v)
}

// ratField renders a rational tag as a decimal string with up to two
// places, trailing zeros trimmed, e.g. 827/100 -> "8.27", -7/10 -> "-0.7".
func ratField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return ""
	}
	v := strconv.FormatFloat(float64(num)/float64(den), 'f', 2, 64)
	v = strings.TrimRight(v, "0")
	v = strings.TrimSuffix(v, ".")
	return v
}

// fractionField renders a rational tag as a filename-safe fraction,
// e.g. 1/250s exposure becomes "1-250".
func fractionField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return ""
	}
	if den == 1 {
		return strconv.FormatInt(num, 10)
	}
	return fmt.Sprintf("%d-%d", num, den)
}
