package card

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardimport/cardimport/fserrors"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, c.Path)
}

func TestNewMissing(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fserrors.ErrPathNotFound)
}

func TestSubpath(t *testing.T) {
	c := &Card{Path: "/media/user/SD"}
	assert.Equal(t, filepath.Join("DCIM", "100MSDCF"), c.Subpath("/media/user/SD/DCIM/100MSDCF/JAM_0001.arw"))
	assert.Equal(t, "", c.Subpath("/media/user/SD/root.arw"))
}

func TestSkip(t *testing.T) {
	assert.True(t, Skip("PRIVATE"))
	assert.True(t, Skip(".Trashes"))
	assert.False(t, Skip("DCIM"))
}
