// Package meta defines the immutable per-photo metadata record consumed
// by the naming, queueing and reorganization layers, and the Source
// interface a metadata extractor must implement.
package meta

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cardimport/cardimport/checksum"
)

// Record is an immutable view of one photo file's derived attributes.
// All fields are fixed at construction; the content hash is computed on
// demand, at most once, and cached for the record's lifetime.
type Record struct {
	SourcePath string
	Extension  string // lower case, without the dot
	Date       *time.Time
	Camera     string
	Lens       string

	// Exposure attributes, already formatted for display. Any may be
	// empty when the source file did not carry them.
	ExposureBias  string
	ExposureValue string
	Brightness    string
	ISO           string
	ShutterSpeed  string

	// Number is the shot sequence number parsed from the filename tail,
	// kept as a string to preserve leading zeros.
	Number string

	hashOnce sync.Once
	hash     string
	hashErr  error
}

// Source supplies a Record for a file on disk. Extraction of EXIF-style
// attributes is collaborator territory; the workflow only consumes the
// resulting records.
type Source interface {
	Extract(path string) (*Record, error)
}

var numberRe = regexp.MustCompile(`(\d+)\D*$`)

// NumberFromName parses the shot sequence number from the tail of a
// file name, e.g. "JAM_1234.arw" -> "1234". Returns "" when the name
// carries no digits.
func NumberFromName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	m := numberRe.FindStringSubmatch(base)
	if m == nil {
		return ""
	}
	return m[1]
}

// Ext returns the lower-cased extension of path without the dot.
func Ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Sum returns the SHA-256 of the file contents as lower-case hex. The
// hash is computed on first call and cached; concurrent callers share
// the single computation.
func (r *Record) Sum() (string, error) {
	r.hashOnce.Do(func() {
		r.hash, r.hashErr = checksum.Sum(r.SourcePath)
	})
	return r.hash, r.hashErr
}

// Matches reports whether the file at path has the same content as the
// record's source file.
func (r *Record) Matches(path string) (bool, error) {
	want, err := r.Sum()
	if err != nil {
		return false, err
	}
	got, err := checksum.Sum(path)
	if err != nil {
		return false, err
	}
	return want == got, nil
}
