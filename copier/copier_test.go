package copier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardimport/cardimport/fserrors"
	"github.com/cardimport/cardimport/fslog"
	"github.com/cardimport/cardimport/pacer"
)

func newTestRsync(attempts int) *Rsync {
	p := pacer.New(attempts, time.Second).SetTimer(func(time.Duration) {})
	return NewRsync(p, fslog.Discard())
}

func writeList(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "files.lst")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCopyRetriesExhausted(t *testing.T) {
	r := newTestRsync(3)
	calls := 0
	r.SetRunner(func(ctx context.Context, name string, args ...string) error {
		calls++
		return errors.New("exit status 23")
	})
	err := r.Copy(context.Background(), "/src", "/dst")
	require.Error(t, err)
	assert.ErrorIs(t, err, fserrors.ErrCopyFailed)
	assert.Equal(t, 3, calls)
}

func TestCopySucceeds(t *testing.T) {
	r := newTestRsync(3)
	calls := 0
	var gotArgs []string
	r.SetRunner(func(ctx context.Context, name string, args ...string) error {
		calls++
		assert.Equal(t, "rsync", name)
		gotArgs = args
		return nil
	})
	require.NoError(t, r.Copy(context.Background(), "/src", "/dst"))
	assert.Equal(t, 1, calls)
	// The trailing separator makes rsync merge the tree's contents into
	// the destination instead of nesting the source directory there.
	require.NotEmpty(t, gotArgs)
	assert.Equal(t, "/src"+string(filepath.Separator), gotArgs[len(gotArgs)-2])
	assert.Equal(t, "/dst", gotArgs[len(gotArgs)-1])
}

func TestCopyDryRunDoesNotInvoke(t *testing.T) {
	r := newTestRsync(3)
	r.DryRun = true
	r.SetRunner(func(ctx context.Context, name string, args ...string) error {
		t.Fatal("runner invoked in dry run")
		return nil
	})
	require.NoError(t, r.Copy(context.Background(), "/src", "/dst"))
}

func TestCopyFromList(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "DCIM", "a.arw")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	list := writeList(t, file)

	r := newTestRsync(3)
	r.Base = src
	var gotArgs []string
	r.SetRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return nil
	})
	require.NoError(t, r.CopyFromList(context.Background(), list, "/dst"))
	require.NotEmpty(t, gotArgs)
	assert.Equal(t, src, gotArgs[len(gotArgs)-2])
	assert.Equal(t, "/dst", gotArgs[len(gotArgs)-1])

	// The relativized list handed to rsync holds card-relative names.
	rel, err := os.ReadFile(list + ".rel")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("DCIM", "a.arw")+"\n", string(rel))
}

func TestCopyFromListMissingListFailsFast(t *testing.T) {
	r := newTestRsync(3)
	r.SetRunner(func(ctx context.Context, name string, args ...string) error {
		t.Fatal("runner invoked for missing list")
		return nil
	})
	err := r.CopyFromList(context.Background(), filepath.Join(t.TempDir(), "nope.lst"), "/dst")
	require.Error(t, err)
	assert.ErrorIs(t, err, fserrors.ErrPathNotFound)
}

func TestCopyFromListDryRunUnsupported(t *testing.T) {
	list := writeList(t, "/card/a.arw")
	r := newTestRsync(3)
	r.DryRun = true
	r.SetRunner(func(ctx context.Context, name string, args ...string) error {
		t.Fatal("runner invoked in dry run")
		return nil
	})
	err := r.CopyFromList(context.Background(), list, "/dst")
	require.Error(t, err)
	assert.ErrorIs(t, err, fserrors.ErrUnsupported)
}
