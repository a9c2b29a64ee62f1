package mfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriveMap(t *testing.T) {
	m := NewDriveMap()
	assert.Equal(t, 2, m.CurrentDrive())
	assert.Equal(t, maxDrives, m.LastDrive())

	require.NoError(t, m.Mount('c', Drive{Root: "/srv/c", Cwd: `\GAMES\`}))
	root, ok := m.RedirectionRoot(2)
	assert.True(t, ok)
	assert.Equal(t, "/srv/c", root)
	assert.Equal(t, "GAMES", m.CurrentDirectory(2))
	assert.Equal(t, "C", m.VolumeLabel(2))

	m.SetCurrentDirectory(2, `DOOM\`)
	assert.Equal(t, "DOOM", m.CurrentDirectory(2))
	m.SetCurrentDirectory(7, "IGNORED")
	assert.Empty(t, m.CurrentDirectory(7))

	assert.Error(t, m.Mount('1', Drive{Root: "/x"}))
	assert.Error(t, m.Mount('E', Drive{}))
	assert.Error(t, m.SetLastDrive(0))
	assert.Error(t, m.SetLastDrive(27))
	require.NoError(t, m.SetLastDrive(3))
	assert.Error(t, m.SetCurrentDrive(3))
	require.NoError(t, m.SetCurrentDrive(0))

	require.NoError(t, m.Mount('E', Drive{Root: "/media/verylongvolumename/", ReadOnly: true}))
	assert.True(t, m.ReadOnly(4))
	assert.Equal(t, "VERYLONGVOL", m.VolumeLabel(4))
	m.Unmount('E')
	_, ok = m.RedirectionRoot(4)
	assert.False(t, ok)
	assert.False(t, m.ReadOnly(-1))
	assert.Empty(t, m.VolumeLabel(30))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{Drives: NewDriveMap(), Host: &memHost{}, CodePage: 1})
	assert.Error(t, err)
}
