// Package queue builds the in-memory copy plan for one card import: an
// ordered list of source files per destination root, the set of files
// already archived correctly, the files whose archived counterpart has
// diverged, and the before-snapshot of source checksums.
package queue

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cardimport/cardimport/meta"
	"github.com/cardimport/cardimport/naming"
)

// Entry is one file to copy into a destination root.
type Entry struct {
	// Source is the absolute path on the card.
	Source string

	// Subpath is the path under the destination root the file should
	// land at, derived from the card's folder structure.
	Subpath string
}

// Queue maps destination roots to the ordered files queued for them.
type Queue struct {
	destinations map[string][]Entry
	order        []string

	skipped    []string
	mismatched map[string]string
	checksums  map[string]string
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{
		destinations: make(map[string][]Entry),
		mismatched:   make(map[string]string),
		checksums:    make(map[string]string),
	}
}

// Destinations returns the destination roots in first-queued order.
func (q *Queue) Destinations() []string {
	return q.order
}

// Files returns the entries queued for dest in queue order.
func (q *Queue) Files(dest string) []Entry {
	return q.destinations[dest]
}

// Skipped returns the source files that were already correct at their
// final canonical location and need no staging copy.
func (q *Queue) Skipped() []string {
	return q.skipped
}

// Mismatched maps final canonical paths to the source files whose
// content differs from what is already archived there.
func (q *Queue) Mismatched() map[string]string {
	return q.mismatched
}

// Checksums returns the before-snapshot: source path to content hash
// captured at enqueue time.
func (q *Queue) Checksums() map[string]string {
	return q.checksums
}

// Count returns the total number of queued entries over all
// destinations.
func (q *Queue) Count() int {
	n := 0
	for _, entries := range q.destinations {
		n += len(entries)
	}
	return n
}

func (q *Queue) append(dest string, e Entry) {
	if _, ok := q.destinations[dest]; !ok {
		q.order = append(q.order, dest)
	}
	q.destinations[dest] = append(q.destinations[dest], e)
}

// Write serializes the source paths queued for dest into a
// newline-delimited list file usable by the copy executor and returns
// its path. The file lives under the system temp directory with a name
// derived from dest, so writing the same destination again overwrites
// the previous list.
func (q *Queue) Write(dest string) (string, error) {
	sum := sha1.Sum([]byte(dest))
	path := filepath.Join(os.TempDir(), fmt.Sprintf("cardimport-%s.lst", hex.EncodeToString(sum[:8])))

	var b strings.Builder
	for _, e := range q.destinations[dest] {
		b.WriteString(e.Source)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.Wrapf(err, "write file list for %q", dest)
	}
	return path, nil
}

// Builder routes files into a Queue according to their type.
type Builder struct {
	// StagingRoot is where raw files land before reorganization.
	StagingRoot string

	// JpgRoot receives preview images.
	JpgRoot string

	// BackupRoot receives every recognized file verbatim.
	BackupRoot string

	// RawExt is the extension (lower case, no dot) routed to the
	// staging bucket, e.g. "arw".
	RawExt string

	// Namer computes the final canonical location of raw files, so
	// files already archived correctly can be skipped.
	Namer *naming.Namer

	Log logrus.FieldLogger
}

// previewExts are the recognized preview image types.
var previewExts = map[string]bool{
	"jpg":  true,
	"jpeg": true,
}

// Add routes one file into q. Raw files go to the staging bucket unless
// their final canonical location already holds identical content;
// preview images go to the jpg root; anything else is logged and
// excluded. Every recognized file is additionally queued for the backup
// root exactly once. The file's checksum is captured into the
// before-snapshot on first enqueue and never recomputed.
func (b *Builder) Add(q *Queue, rec *meta.Record, subpath string) error {
	name := filepath.Base(rec.SourcePath)
	entry := Entry{Source: rec.SourcePath, Subpath: filepath.Join(subpath, name)}

	switch {
	case rec.Extension == b.RawExt:
		final, err := b.Namer.Path(rec)
		if err != nil {
			// A per-file naming failure only keeps the file out of the
			// staging bucket; it is still mirrored to backup below.
			b.Log.WithField("file", rec.SourcePath).Errorf("no canonical path: %v", err)
		} else {
			queued, err := b.addRaw(q, rec, entry, final)
			if err != nil {
				return err
			}
			if !queued {
				q.skipped = append(q.skipped, rec.SourcePath)
			}
		}
	case previewExts[rec.Extension]:
		q.append(b.JpgRoot, entry)
	default:
		b.Log.WithField("file", rec.SourcePath).Warn("unknown file type, not copied")
		return nil
	}

	q.append(b.BackupRoot, entry)

	if _, ok := q.checksums[rec.SourcePath]; !ok {
		sum, err := rec.Sum()
		if err != nil {
			return err
		}
		q.checksums[rec.SourcePath] = sum
	}
	return nil
}

// addRaw queues a raw file for staging unless its canonical archive
// location already holds identical content. It reports whether the file
// was queued.
func (b *Builder) addRaw(q *Queue, rec *meta.Record, entry Entry, final string) (bool, error) {
	if _, err := os.Stat(final); err == nil {
		same, err := rec.Matches(final)
		if err != nil {
			return false, err
		}
		if same {
			b.Log.WithFields(logrus.Fields{
				"file":    rec.SourcePath,
				"archive": final,
			}).Debug("already archived, skipping staging copy")
			return false, nil
		}
		q.mismatched[final] = rec.SourcePath
		b.Log.WithFields(logrus.Fields{
			"file":    rec.SourcePath,
			"archive": final,
		}).Warn("archived copy has different content")
	}
	q.append(b.StagingRoot, entry)
	return true, nil
}
