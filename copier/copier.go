// Package copier drives the external bulk-copy mechanism for one
// destination at a time, with bounded retries on failure.
package copier

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cardimport/cardimport/fserrors"
	"github.com/cardimport/cardimport/pacer"
)

// Copier is the capability set the orchestrator selects from: copy a
// whole directory tree, or copy an explicit list of files.
type Copier interface {
	// Copy copies the tree under srcRoot into destRoot.
	Copy(ctx context.Context, srcRoot, destRoot string) error

	// CopyFromList copies the files named in the newline-delimited list
	// at listPath into destRoot.
	CopyFromList(ctx context.Context, listPath, destRoot string) error
}

// Runner executes one external command attempt. Swappable for tests.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Rsync supervises an out-of-process rsync. A nonzero exit status is a
// retryable failure; retries are bounded by the pacer and exhausting
// them yields ErrCopyFailed for the orchestrator to weigh, not a fatal
// process error.
type Rsync struct {
	DryRun bool
	Log    logrus.FieldLogger

	// Base is the source root the list file's absolute paths live
	// under. Rsync wants names relative to a transfer base, so
	// CopyFromList re-relativizes the generic list against Base. An
	// empty Base means the filesystem root.
	Base string

	pacer  *pacer.Pacer
	runner Runner
}

var _ Copier = (*Rsync)(nil)

// NewRsync returns an Rsync executor retrying with p.
func NewRsync(p *pacer.Pacer, log logrus.FieldLogger) *Rsync {
	return &Rsync{
		Log:    log,
		pacer:  p,
		runner: execRunner,
	}
}

// SetRunner overrides the command runner. Used by tests.
func (r *Rsync) SetRunner(runner Runner) *Rsync {
	r.runner = runner
	return r
}

// Copy copies the tree under srcRoot into destRoot.
func (r *Rsync) Copy(ctx context.Context, srcRoot, destRoot string) error {
	if r.DryRun {
		r.Log.WithFields(logrus.Fields{
			"source":      srcRoot,
			"destination": destRoot,
		}).Info("dry run: would copy tree")
		return nil
	}
	// rsync nests the source directory inside the destination unless
	// the source path ends with a separator.
	src := srcRoot
	if !strings.HasSuffix(src, string(filepath.Separator)) {
		src += string(filepath.Separator)
	}
	return r.run(ctx, destRoot, "-a", "--checksum", src, destRoot)
}

// CopyFromList copies the files named in the list at listPath into
// destRoot. It fails fast when the list file is missing. Dry-run is not
// implemented for list-based copies and returns ErrUnsupported.
func (r *Rsync) CopyFromList(ctx context.Context, listPath, destRoot string) error {
	if r.DryRun {
		return errors.Wrap(fserrors.ErrUnsupported, "dry run for list-based copy")
	}
	if _, err := os.Stat(listPath); err != nil {
		return errors.Wrapf(fserrors.ErrPathNotFound, "file list %q", listPath)
	}
	base := r.Base
	if base == "" {
		base = string(filepath.Separator)
	}
	relList, err := r.relativize(listPath, base)
	if err != nil {
		return err
	}
	return r.run(ctx, destRoot, "-a", "--checksum", "--files-from="+relList, base, destRoot)
}

// relativize rewrites the absolute paths in the generic list file into
// names relative to base, which is what rsync's --files-from expects.
func (r *Rsync) relativize(listPath, base string) (string, error) {
	raw, err := os.ReadFile(listPath)
	if err != nil {
		return "", errors.Wrapf(err, "read file list %q", listPath)
	}
	var b strings.Builder
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" {
			continue
		}
		rel, err := filepath.Rel(base, line)
		if err != nil {
			return "", errors.Wrapf(err, "file %q not below %q", line, base)
		}
		b.WriteString(rel)
		b.WriteByte('\n')
	}
	relList := listPath + ".rel"
	if err := os.WriteFile(relList, []byte(b.String()), 0o644); err != nil {
		return "", errors.Wrap(err, "write relative file list")
	}
	return relList, nil
}

func (r *Rsync) run(ctx context.Context, destRoot string, args ...string) error {
	err := r.pacer.Call(func() (bool, error) {
		err := r.runner(ctx, "rsync", args...)
		if err != nil {
			r.Log.WithField("destination", destRoot).Warnf("rsync failed, retrying: %v", err)
			return true, fserrors.RetryError(err)
		}
		return false, nil
	})
	if err != nil {
		r.Log.WithField("destination", destRoot).Errorf("rsync gave up after %d attempts: %v", r.pacer.Attempts(), err)
		return errors.Wrapf(fserrors.ErrCopyFailed, "rsync to %q: %v", destRoot, err)
	}
	return nil
}
