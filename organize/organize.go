// Package organize relocates staged raw files to their canonical
// date-partitioned archive paths, resolving name collisions by content
// comparison or a numeric suffix.
package organize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cardimport/cardimport/checksum"
	"github.com/cardimport/cardimport/meta"
	"github.com/cardimport/cardimport/naming"
)

// Result reports what Organize did with each staged file.
type Result struct {
	// Moved maps staged path to final canonical path. Files already
	// present at their canonical path with identical content are
	// recorded here without being moved. Unresolved files map to "".
	Moved map[string]string

	// Unresolved lists staged files for which no free disambiguated
	// name was found within the bound. They are left in place for the
	// operator to deal with.
	Unresolved []string

	// Failed counts files that hit per-file errors (metadata, naming,
	// directory creation). They are logged and left in place.
	Failed int
}

// Organizer moves staged files into the archive.
type Organizer struct {
	Namer *naming.Namer
	Meta  meta.Source

	// MaxAttempts bounds the " (1)", " (2)", ... collision probe.
	MaxAttempts int

	DryRun bool
	Log    logrus.FieldLogger
}

// Organize walks every file under stagingRoot and relocates it to its
// canonical path. Per-file failures do not abort the remaining files;
// only a failure to walk the staging tree itself is returned as an
// error.
func (o *Organizer) Organize(stagingRoot string) (*Result, error) {
	res := &Result{Moved: make(map[string]string)}

	var files []string
	err := filepath.Walk(stagingRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, path := range files {
		o.organizeFile(path, res)
	}
	return res, nil
}

func (o *Organizer) organizeFile(path string, res *Result) {
	log := o.Log.WithField("file", path)

	rec, err := o.Meta.Extract(path)
	if err != nil {
		log.Errorf("cannot read metadata: %v", err)
		res.Failed++
		return
	}
	dest, err := o.Namer.Path(rec)
	if err != nil {
		log.Errorf("cannot derive canonical path: %v", err)
		res.Failed++
		return
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		log.Errorf("cannot create %q: %v", filepath.Dir(dest), err)
		res.Failed++
		return
	}

	if _, err := os.Stat(dest); err == nil {
		same, err := checksum.Compare(path, dest)
		if err != nil {
			log.Errorf("cannot compare with %q: %v", dest, err)
			res.Failed++
			return
		}
		if same {
			log.WithField("destination", dest).Debug("already organized with identical content")
			res.Moved[path] = dest
			return
		}
		log.WithField("destination", dest).Warn("name taken by different content, keeping both")
		dest = o.disambiguate(dest)
		if dest == "" {
			log.Error("no free disambiguated name within bound")
			res.Moved[path] = ""
			res.Unresolved = append(res.Unresolved, path)
			return
		}
	}

	if o.DryRun {
		log.Infof("dry run: would move to %q", dest)
		res.Moved[path] = dest
		return
	}
	if err := os.Rename(path, dest); err != nil {
		log.Errorf("cannot move to %q: %v", dest, err)
		res.Failed++
		return
	}
	res.Moved[path] = dest
}

// disambiguate returns the first unused " (n)" variant of dest, with
// the suffix inserted before the extension, or "" when every candidate
// within the bound exists.
func (o *Organizer) disambiguate(dest string) string {
	ext := filepath.Ext(dest)
	base := strings.TrimSuffix(dest, ext)
	for i := 1; i <= o.MaxAttempts; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return ""
}
