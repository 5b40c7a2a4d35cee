// Package workflow composes the queue, copy executor, checksum
// validator and reorganizer into the card import state machine.
package workflow

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cardimport/cardimport/card"
	"github.com/cardimport/cardimport/checksum"
	"github.com/cardimport/cardimport/config"
	"github.com/cardimport/cardimport/copier"
	"github.com/cardimport/cardimport/fserrors"
	"github.com/cardimport/cardimport/meta"
	"github.com/cardimport/cardimport/naming"
	"github.com/cardimport/cardimport/organize"
	"github.com/cardimport/cardimport/prompt"
	"github.com/cardimport/cardimport/queue"
)

// State names the workflow phases.
type State string

// Workflow states, in order.
const (
	StateValidatingPaths     State = "validating-paths"
	StateQueuing             State = "queuing"
	StateCopying             State = "copying"
	StateReorganizing        State = "reorganizing"
	StateValidatingChecksums State = "validating-checksums"
	StateDone                State = "done"
	StateFailed              State = "failed"
)

// Workflow runs one card import end to end.
type Workflow struct {
	Config *config.Config
	Card   *card.Card
	Meta   meta.Source
	Copier copier.Copier
	Ask    prompt.ContinueFunc
	Log    logrus.FieldLogger

	state  State
	errs   []string
	namer  *naming.Namer
	valid  *checksum.Validator
}

// New wires a workflow from its collaborators.
func New(cfg *config.Config, c *card.Card, src meta.Source, cp copier.Copier, ask prompt.ContinueFunc, log logrus.FieldLogger) *Workflow {
	return &Workflow{
		Config: cfg,
		Card:   c,
		Meta:   src,
		Copier: cp,
		Ask:    ask,
		Log:    log,
		namer:  &naming.Namer{Root: cfg.RawRoot, Limit: cfg.PathLimit},
		valid:  &checksum.Validator{Log: log, Checkers: cfg.Checkers},
	}
}

// State returns the phase the workflow is in, or finished in.
func (w *Workflow) State() State {
	return w.state
}

func (w *Workflow) enter(s State) {
	w.state = s
	w.Log.WithField("state", string(s)).Debug("workflow state")
}

func (w *Workflow) record(err error) {
	w.Log.Error(err)
	w.errs = append(w.errs, err.Error())
}

func (w *Workflow) fail(err error) error {
	w.enter(StateFailed)
	return err
}

// Run drives the state machine:
//
//	validating-paths -> queuing -> copying -> reorganizing ->
//	validating-checksums -> done | failed
//
// Structural precondition failures abort before any mutation. Copy and
// checksum failures per destination are escalated to the operator and
// aggregated; a reorganize failure halts before final validation. Run
// returns nil only when the terminal state is done.
func (w *Workflow) Run(ctx context.Context) error {
	w.enter(StateValidatingPaths)
	if _, err := os.Stat(w.Card.Path); err != nil {
		return w.fail(errors.Wrapf(fserrors.ErrPathNotFound, "card %q", w.Card.Path))
	}
	if err := w.Config.Validate(); err != nil {
		return w.fail(err)
	}
	staging, err := w.Config.EnsureStaging()
	if err != nil {
		return w.fail(err)
	}

	w.enter(StateQueuing)
	q, err := w.buildQueue(staging)
	if err != nil {
		return w.fail(err)
	}
	w.Log.Infof("queued %d files to copy across %d destinations (%d skipped, %d mismatched)",
		q.Count(), len(q.Destinations()), len(q.Skipped()), len(q.Mismatched()))

	w.enter(StateCopying)
	for _, dest := range q.Destinations() {
		if err := w.copyDestination(ctx, q, dest); err != nil {
			if errors.Is(err, errAborted) {
				return w.fail(err)
			}
			w.record(err)
		}
	}

	w.enter(StateReorganizing)
	org := &organize.Organizer{
		Namer:       w.namer,
		Meta:        w.Meta,
		MaxAttempts: w.Config.CollisionBound,
		DryRun:      w.Config.DryRun,
		Log:         w.Log,
	}
	moved, err := org.Organize(staging)
	if err != nil {
		w.Log.Error("failed to organize files, cannot continue")
		w.Log.Error("the file estate may be inconsistent, verify file locations manually")
		return w.fail(err)
	}
	if len(moved.Unresolved) > 0 || moved.Failed > 0 {
		if !w.Ask("Some staged files could not be organized.") {
			return w.fail(errors.Wrap(errAborted, "organize"))
		}
		w.record(errors.Wrapf(fserrors.ErrNameCollisionUnresolved,
			"%d unresolved, %d failed", len(moved.Unresolved), moved.Failed))
	}

	w.enter(StateValidatingChecksums)
	if !w.validateFinal(ctx, q, staging, moved) {
		if !w.Ask("Final checksum validation failed.") {
			return w.fail(errors.Wrap(errAborted, "final validation"))
		}
		w.record(errors.Wrap(fserrors.ErrChecksumMismatch, "final validation"))
	}

	if len(w.errs) > 0 {
		w.enter(StateFailed)
		return errors.Errorf("import failed: %d errors recorded", len(w.errs))
	}
	w.enter(StateDone)
	return nil
}

var errAborted = errors.New("aborted by operator")

// buildQueue walks the card and routes every file. The card is only
// read; the queue is complete and immutable before any copy begins.
func (w *Workflow) buildQueue(staging string) (*queue.Queue, error) {
	builder := &queue.Builder{
		StagingRoot: staging,
		JpgRoot:     w.Config.JpgRoot,
		BackupRoot:  w.Config.BackupRoot,
		RawExt:      w.Config.RawExtension,
		Namer:       w.namer,
		Log:         w.Log,
	}
	q := queue.New()
	err := filepath.Walk(w.Card.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if card.Skip(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rec, err := w.Meta.Extract(path)
		if err != nil {
			return errors.Wrapf(err, "metadata for %q", path)
		}
		return builder.Add(q, rec, w.Card.Subpath(path))
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// copyDestination writes the list for dest, runs the external copy and
// validates the copied files against the before-snapshot. Validation
// runs even after a failed copy so every missing or mismatched file is
// logged for manual reconciliation. Failures ask the operator; a
// decline comes back wrapped in errAborted.
func (w *Workflow) copyDestination(ctx context.Context, q *queue.Queue, dest string) error {
	entries := q.Files(dest)
	if len(entries) == 0 {
		return nil
	}
	w.Log.WithField("destination", dest).Infof("copying %d files", len(entries))

	list, err := q.Write(dest)
	if err != nil {
		return err
	}
	var copyErr error
	if err := w.Copier.CopyFromList(ctx, list, dest); err != nil {
		if errors.Is(err, fserrors.ErrUnsupported) {
			return err
		}
		if !w.Ask("Copy to " + dest + " failed.") {
			return errors.Wrapf(errAborted, "copy to %q", dest)
		}
		copyErr = err
	}
	if w.Config.DryRun {
		return copyErr
	}

	before := q.Checksums()
	pairs := make(map[string]string, len(entries))
	for _, e := range entries {
		pairs[e.Source] = filepath.Join(dest, e.Subpath)
	}
	if !w.valid.ValidatePairs(ctx, before, pairs) {
		if !w.Ask("Checksum validation for " + dest + " failed.") {
			return errors.Wrapf(errAborted, "validation of %q", dest)
		}
		if copyErr != nil {
			w.record(errors.Wrapf(fserrors.ErrChecksumMismatch, "destination %q", dest))
			return copyErr
		}
		return errors.Wrapf(fserrors.ErrChecksumMismatch, "destination %q", dest)
	}
	return copyErr
}

// validateFinal remaps every reorganized staged file back to its
// original card path and checks the final archive copy against the
// before-snapshot captured at queue time.
func (w *Workflow) validateFinal(ctx context.Context, q *queue.Queue, staging string, moved *organize.Result) bool {
	if w.Config.DryRun {
		return true
	}
	before := q.Checksums()
	pairs := make(map[string]string)
	for staged, final := range moved.Moved {
		if final == "" {
			continue
		}
		rel, err := filepath.Rel(staging, staged)
		if err != nil {
			w.Log.WithField("file", staged).Errorf("not below staging bucket: %v", err)
			continue
		}
		src := filepath.Join(w.Card.Path, rel)
		if _, ok := before[src]; !ok {
			// Left over from an earlier interrupted run, nothing to
			// compare against.
			w.Log.WithField("file", staged).Debug("no snapshot entry, skipping final validation")
			continue
		}
		pairs[src] = final
	}
	return w.valid.ValidatePairs(ctx, before, pairs)
}
