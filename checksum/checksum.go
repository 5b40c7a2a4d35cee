// Package checksum computes and compares content hashes between source
// and destination files, and validates before/after snapshots taken
// around a bulk copy.
package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// defaultCheckers bounds parallel hash computation. Hashing is IO bound
// so a small pool is enough.
const defaultCheckers = 8

// Sum returns the SHA-256 of the file at path as lower-case hex.
func Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "checksum %q", path)
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "checksum %q", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compare reports whether the files at a and b have identical content.
func Compare(a, b string) (bool, error) {
	sumA, err := Sum(a)
	if err != nil {
		return false, err
	}
	sumB, err := Sum(b)
	if err != nil {
		return false, err
	}
	return sumA == sumB, nil
}

// Validator checks destination trees against a before-snapshot.
type Validator struct {
	Log      logrus.FieldLogger
	Checkers int // parallel hash computations, defaultCheckers if 0
}

// ValidateTree recomputes the hash of every snapshot entry's
// counterpart under destRoot, located by its subpath relative to
// sourceRoot. Missing files and mismatched hashes are logged
// individually; the return is true only when every entry passes.
func (v *Validator) ValidateTree(ctx context.Context, before map[string]string, sourceRoot, destRoot string) bool {
	pairs := make(map[string]string, len(before))
	for src := range before {
		rel, err := filepath.Rel(sourceRoot, src)
		if err != nil {
			v.Log.WithField("file", src).Errorf("not below source root %q: %v", sourceRoot, err)
			continue
		}
		pairs[src] = filepath.Join(destRoot, rel)
	}
	return v.ValidatePairs(ctx, before, pairs)
}

// ValidatePairs recomputes the hash of each destination file in pairs
// (source path -> destination path) and compares it with the
// before-snapshot entry for the source. Every failing entry is logged
// before the aggregate result is returned.
func (v *Validator) ValidatePairs(ctx context.Context, before map[string]string, pairs map[string]string) bool {
	checkers := v.Checkers
	if checkers <= 0 {
		checkers = defaultCheckers
	}

	var (
		mu sync.Mutex
		ok = true
	)
	fail := func() {
		mu.Lock()
		ok = false
		mu.Unlock()
	}

	g, _ := errgroup.WithContext(ctx)
	sem := make(chan struct{}, checkers)
	for src, dest := range pairs {
		src, dest := src, dest
		want, found := before[src]
		if !found {
			v.Log.WithField("file", src).Error("no before-snapshot entry")
			fail()
			continue
		}
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if _, err := os.Stat(dest); err != nil {
				v.Log.WithFields(logrus.Fields{
					"source":      src,
					"destination": dest,
				}).Errorf("missing at destination: %v", err)
				fail()
				return nil
			}
			got, err := Sum(dest)
			if err != nil {
				v.Log.WithFields(logrus.Fields{
					"source":      src,
					"destination": dest,
				}).Errorf("checksum failed: %v", err)
				fail()
				return nil
			}
			if got != want {
				v.Log.WithFields(logrus.Fields{
					"source":      src,
					"destination": dest,
					"want":        want,
					"got":         got,
				}).Error("checksum mismatch")
				fail()
			}
			return nil
		})
	}
	_ = g.Wait()
	return ok
}
