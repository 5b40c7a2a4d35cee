// Package card resolves the mounted removable volume and derives
// destination subpaths from its folder structure.
package card

import (
	"os"
	"os/user"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/cardimport/cardimport/fserrors"
)

// skipFolders are volume-level system folders that never hold photos.
var skipFolders = map[string]bool{
	".Trashes":        true,
	".Spotlight-V100": true,
	".fseventsd":      true,
	"PRIVATE":         true,
	"AVF_INFO":        true,
	"THMBNL":          true,
}

// Card is a mounted removable volume.
type Card struct {
	Path string
}

// New returns the card mounted at path. The path must exist.
func New(path string) (*Card, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, errors.Wrapf(fserrors.ErrPathNotFound, "card %q", path)
	}
	return &Card{Path: path}, nil
}

// Resolve finds a mounted removable volume by probing the conventional
// media mount points for a directory containing DCIM. It returns
// ErrPathNotFound when nothing looks like a card.
func Resolve() (*Card, error) {
	var bases []string
	if u, err := user.Current(); err == nil {
		bases = append(bases,
			filepath.Join("/media", u.Username),
			filepath.Join("/run/media", u.Username),
		)
	}
	bases = append(bases, "/media", "/mnt")

	for _, base := range bases {
		mounts, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, m := range mounts {
			if !m.IsDir() {
				continue
			}
			mount := filepath.Join(base, m.Name())
			if _, err := os.Stat(filepath.Join(mount, "DCIM")); err == nil {
				return &Card{Path: mount}, nil
			}
		}
	}
	return nil, errors.Wrap(fserrors.ErrPathNotFound, "no removable volume with a DCIM folder")
}

// Subpath returns the directory of file relative to the card root,
// i.e. the subfolder structure to mirror at the destinations. Files at
// the card root yield "".
func (c *Card) Subpath(file string) string {
	rel, err := filepath.Rel(c.Path, filepath.Dir(file))
	if err != nil || rel == "." {
		return ""
	}
	return rel
}

// Skip reports whether the directory named name should be ignored
// while walking the card.
func Skip(name string) bool {
	return skipFolders[name]
}
