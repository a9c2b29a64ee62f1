package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mfsctl runs the root command with args and returns what it printed on
// standard output.
func mfsctl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, logLevel, drives, stats = "", "", nil, false
	truenameMode, dirAttr, dirAll, shortnameFCB, attrReadOnly = "canonical", "", false, false, false
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func hostTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, size := range map[string]int{"LongFileName.txt": 100, "README.TXT": 10, ".hidden": 1} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Docs"), 0o755))
	return dir
}

func TestCommands(t *testing.T) {
	root := hostTree(t)
	drive := "--drive=C=" + root
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"truename", `C:\docs\..\readme.txt`}, "C:\\readme.txt\n"},
		{[]string{"truename", "--mode=long", `C:\LONGFI~1.TXT`}, "C:\\LongFileName.txt\n"},
		{[]string{"truename", "--mode=short", `C:\docs`}, "C:\\DOCS\n"},
		{[]string{"shortname", "Long File Name.txt"}, "LONGFI~1.TXT\n"},
		{[]string{"cd", `C:\Docs`}, "C:\\DOCS\n"},
		{[]string{"dir", `C:\*.ZZZ`}, "File not found\n"},
		{[]string{"vol", `C:\`}, "filesystem MFS flags 0x4002 max name 255 max path 260\n"},
	}
	for _, tt := range tests {
		got, err := mfsctl(t, append([]string{drive, "--log-level=error"}, tt.args...)...)
		require.NoError(t, err, "%v", tt.args)
		assert.Equal(t, tt.want, got, "%v", tt.args)
	}
}

func TestCommandDir(t *testing.T) {
	root := hostTree(t)
	drive := "--drive=C=" + root

	got, err := mfsctl(t, drive, "dir", `C:\*.*`)
	require.NoError(t, err)
	assert.Contains(t, got, "LONGFI~1.TXT")
	assert.Contains(t, got, "LongFileName.txt")
	assert.Contains(t, got, "<DIR>")
	assert.NotContains(t, got, ".hidden")
	assert.Contains(t, got, fmt.Sprintf("%9d file(s)", 3))

	got, err = mfsctl(t, drive, "dir", "-a", `C:\*.*`)
	require.NoError(t, err)
	assert.Contains(t, got, fmt.Sprintf("%9d file(s)", 4))
}

func TestCommandChanges(t *testing.T) {
	root := hostTree(t)
	drive := "--drive=C=" + root

	// Arguments are converted to the guest code page and back.
	_, err := mfsctl(t, drive, "md", `C:\Docs\Ñandú`)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, "Docs", "Ñandú"))
	_, err = mfsctl(t, drive, "rd", `C:\Docs\Ñandú`)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(root, "Docs", "Ñandú"))

	_, err = mfsctl(t, drive, "ren", `C:\README.TXT`, `C:\notes.txt`)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "notes.txt"))

	_, err = mfsctl(t, drive, "del", `C:\L*.TXT`)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "LongFileName.txt"))
	assert.FileExists(t, filepath.Join(root, "notes.txt"))
	assert.DirExists(t, filepath.Join(root, "Docs"))

	got, err := mfsctl(t, drive, "attr", "--readonly", `C:\notes.txt`)
	require.NoError(t, err)
	assert.Equal(t, "R----A 10 C:\\notes.txt\n", got)
}

func TestCommandErrors(t *testing.T) {
	root := hostTree(t)
	drive := "--drive=C=" + root

	_, err := mfsctl(t, drive, "truename", `E:\X`)
	assert.EqualError(t, err, "drive is not redirected")
	_, err = mfsctl(t, drive, "rd", `C:\NOPE`)
	assert.Error(t, err)
	_, err = mfsctl(t, "--drive=C", "vol", `C:\`)
	assert.Error(t, err)
	_, err = mfsctl(t, drive, "truename", "--mode=odd", `C:\`)
	assert.Error(t, err)
}
