package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardimport/cardimport/card"
	"github.com/cardimport/cardimport/config"
	"github.com/cardimport/cardimport/fslog"
	"github.com/cardimport/cardimport/meta"
	"github.com/cardimport/cardimport/prompt"
)

// stubSource derives records from the file name alone; no real EXIF
// data is needed to exercise the workflow.
type stubSource struct{}

func (stubSource) Extract(path string) (*meta.Record, error) {
	date := time.Date(2023, 8, 5, 12, 0, 0, 0, time.UTC)
	return &meta.Record{
		SourcePath: path,
		Extension:  meta.Ext(path),
		Date:       &date,
		Camera:     "a7r4",
		Number:     meta.NumberFromName(filepath.Base(path)),
	}, nil
}

// fakeCopier copies the listed files locally, mirroring the card's
// folder structure under the destination root.
type fakeCopier struct {
	base  string
	calls int
	fail  bool
}

func (c *fakeCopier) Copy(ctx context.Context, srcRoot, destRoot string) error {
	c.calls++
	if c.fail {
		return errors.New("copy failed")
	}
	return nil
}

func (c *fakeCopier) CopyFromList(ctx context.Context, listPath, destRoot string) error {
	c.calls++
	if c.fail {
		return errors.New("copy failed")
	}
	raw, err := os.ReadFile(listPath)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" {
			continue
		}
		rel, err := filepath.Rel(c.base, line)
		if err != nil {
			return err
		}
		dest := filepath.Join(destRoot, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		data, err := os.ReadFile(line)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fixture struct {
	cfg    *config.Config
	card   *card.Card
	copier *fakeCopier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cardDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cardDir, "DCIM"), 0o755))
	c, err := card.New(cardDir)
	require.NoError(t, err)
	return &fixture{
		cfg: &config.Config{
			RawRoot:        t.TempDir(),
			JpgRoot:        t.TempDir(),
			BackupRoot:     t.TempDir(),
			RawExtension:   "arw",
			Retries:        1,
			RetrySleep:     time.Millisecond,
			CollisionBound: 10,
			PathLimit:      254,
			Checkers:       2,
		},
		card:   c,
		copier: &fakeCopier{base: cardDir},
	}
}

func (f *fixture) addFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.card.Path, "DCIM", name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) workflow(ask prompt.ContinueFunc) *Workflow {
	return New(f.cfg, f.card, stubSource{}, f.copier, ask, fslog.Discard())
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		tree[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "JAM_0001.arw", "raw bytes")
	f.addFile(t, "JAM_0001.jpg", "jpeg bytes")
	f.addFile(t, "random.xyz", "who knows")

	w := f.workflow(prompt.Never())
	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, StateDone, w.State())

	// Raw file reorganized to its canonical dated path.
	archive := readTree(t, f.cfg.RawRoot)
	var finals []string
	for rel, content := range archive {
		if strings.HasPrefix(rel, "2023") {
			finals = append(finals, rel)
			assert.Equal(t, "raw bytes", content)
		}
	}
	require.Len(t, finals, 1)
	assert.Contains(t, finals[0], filepath.Join("2023", "2023-08-05"))

	// Staging bucket is drained.
	staging := readTree(t, f.cfg.StagingRoot())
	assert.Empty(t, staging)

	// Previews mirrored under the jpg root by card subpath.
	assert.Equal(t, map[string]string{
		filepath.Join("DCIM", "JAM_0001.jpg"): "jpeg bytes",
	}, readTree(t, f.cfg.JpgRoot))

	// Backup holds both recognized files and not the unknown one.
	assert.Equal(t, map[string]string{
		filepath.Join("DCIM", "JAM_0001.arw"): "raw bytes",
		filepath.Join("DCIM", "JAM_0001.jpg"): "jpeg bytes",
	}, readTree(t, f.cfg.BackupRoot))
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "JAM_0001.arw", "raw bytes")

	w := f.workflow(prompt.Never())
	require.NoError(t, w.Run(context.Background()))
	require.Equal(t, StateDone, w.State())

	// Second run: the raw file is already archived with identical
	// content, so nothing is staged and the run still succeeds.
	w2 := f.workflow(prompt.Never())
	require.NoError(t, w2.Run(context.Background()))
	assert.Equal(t, StateDone, w2.State())

	archive := readTree(t, f.cfg.RawRoot)
	count := 0
	for rel := range archive {
		if strings.HasPrefix(rel, "2023") {
			count++
		}
	}
	assert.Equal(t, 1, count, "no duplicate archive entries")
}

func TestRunMissingRootHaltsBeforeAnySideEffect(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "JAM_0001.arw", "raw bytes")
	require.NoError(t, os.Remove(f.cfg.BackupRoot))

	w := f.workflow(prompt.Never())
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, 0, f.copier.calls)

	// The staging bucket was never created.
	_, statErr := os.Stat(f.cfg.StagingRoot())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCopyFailureDeclinedAborts(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "JAM_0001.arw", "raw bytes")
	f.copier.fail = true

	w := f.workflow(prompt.Never())
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, 1, f.copier.calls, "aborts on the first declined failure")
}

func TestRunCopyFailureAcceptedAttemptsAllDestinations(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "JAM_0001.arw", "raw bytes")
	f.addFile(t, "JAM_0001.jpg", "jpeg bytes")
	f.copier.fail = true

	asked := 0
	ask := func(string) bool {
		asked++
		return true
	}
	w := f.workflow(ask)
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())
	// Staging, jpg and backup destinations all attempted despite the
	// failures, and each destination asks once for the copy and once
	// for the checksum validation that still runs after it.
	assert.Equal(t, 3, f.copier.calls)
	assert.Equal(t, 6, asked)
}

func TestRunFailedCopyStillValidatesChecksums(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "JAM_0001.arw", "raw bytes")
	f.copier.fail = true

	var prompts []string
	ask := func(msg string) bool {
		prompts = append(prompts, msg)
		return true
	}
	w := f.workflow(ask)
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())

	// Nothing was copied, so validation reports the missing files for
	// each destination instead of being skipped.
	var copies, validations int
	for _, p := range prompts {
		switch {
		case strings.HasPrefix(p, "Copy to"):
			copies++
		case strings.HasPrefix(p, "Checksum validation"):
			validations++
		}
	}
	require.Greater(t, copies, 0)
	assert.Equal(t, copies, validations)
}
