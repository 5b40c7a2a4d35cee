package checksum

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardimport/cardimport/fslog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSum(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "hello")
	sum, err := Sum(path)
	require.NoError(t, err)
	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
}

func TestSumMissing(t *testing.T) {
	_, err := Sum(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", "payload")
	b := writeFile(t, dir, "b", "payload")
	c := writeFile(t, dir, "c", "other")

	same, err := Compare(a, b)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = Compare(a, c)
	require.NoError(t, err)
	assert.False(t, same)
}

func snapshot(t *testing.T, paths ...string) map[string]string {
	t.Helper()
	before := make(map[string]string, len(paths))
	for _, p := range paths {
		sum, err := Sum(p)
		require.NoError(t, err)
		before[p] = sum
	}
	return before
}

func TestValidateTreeOK(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	a := writeFile(t, src, "DCIM/a.arw", "alpha")
	b := writeFile(t, src, "DCIM/b.arw", "beta")
	writeFile(t, dst, "DCIM/a.arw", "alpha")
	writeFile(t, dst, "DCIM/b.arw", "beta")

	v := &Validator{Log: fslog.Discard()}
	assert.True(t, v.ValidateTree(context.Background(), snapshot(t, a, b), src, dst))
}

func TestValidateTreeMissingDestination(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	a := writeFile(t, src, "DCIM/a.arw", "alpha")

	v := &Validator{Log: fslog.Discard()}
	assert.False(t, v.ValidateTree(context.Background(), snapshot(t, a), src, dst))
}

func TestValidateTreeMismatch(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	a := writeFile(t, src, "DCIM/a.arw", "alpha")
	writeFile(t, dst, "DCIM/a.arw", "tampered")

	v := &Validator{Log: fslog.Discard()}
	assert.False(t, v.ValidateTree(context.Background(), snapshot(t, a), src, dst))
}

func TestValidatePairsNoSnapshotEntry(t *testing.T) {
	dst := t.TempDir()
	final := writeFile(t, dst, "a.arw", "alpha")

	v := &Validator{Log: fslog.Discard()}
	pairs := map[string]string{"/card/a.arw": final}
	assert.False(t, v.ValidatePairs(context.Background(), map[string]string{}, pairs))
}
