package mfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populate(rig *testRig) {
	rig.host.writeFile("/c/LongFileName.Txt", 100)
	rig.host.writeFile("/c/README.TXT", 10)
	rig.host.writeFile("/c/Docs/Report 2024.doc", 2024)
	rig.host.writeFile("/c/日本.txt", 1)
	rig.host.mkdirAll("/c/Docs/Sub Dir")
}

func TestToHost(t *testing.T) {
	rig := newTestRig(t)
	assert.Equal(t, "/c/", rig.r.ToHost(`C:\`, 2))
	assert.Equal(t, "/c/DIR/café.txt", rig.r.ToHost("C:\\DIR\\caf\x82.txt", 2))
	assert.Equal(t, "/d/GAMES", rig.r.ToHost(`D:\GAMES`, 3))
}

func TestFindFile(t *testing.T) {
	rig := newTestRig(t)
	populate(rig)
	tests := []struct {
		host string
		want string
		err  error
	}{
		{host: "/c/LONGFI~1.TXT", want: "/c/LongFileName.Txt"},
		{host: "/c/longfilename.txt", want: "/c/LongFileName.Txt"},
		{host: "/c/readme.txt", want: "/c/README.TXT"},
		{host: "/c/DOCS/REPORT~1.DOC", want: "/c/Docs/Report 2024.doc"},
		{host: "/c/docs/subdir~1", want: "/c/Docs/Sub Dir"},
		{host: "/c/", want: "/c"},
		{host: "/c/MISSING.TXT", err: FileNotFound},
		{host: "/c/NOPE/X.TXT", err: PathNotFound},
		{host: "/c/Docs/../README.TXT", err: PathNotFound},
	}
	for _, tt := range tests {
		got, _, err := rig.r.findFile(tt.host, 2)
		if tt.err != nil {
			assert.Equal(t, tt.err, err, tt.host)
			continue
		}
		require.NoError(t, err, tt.host)
		assert.Equal(t, tt.want, got, tt.host)
	}
}

// Resolved host paths never leave the drive's root.
func TestHostPathContainment(t *testing.T) {
	rig := newTestRig(t)
	for _, src := range []string{
		`C:\..\..\etc\passwd`, `C:..`, `C:\A\..\..\B`, `C:\...\X`,
		`C:\A\...\..`, `C:/../d`, `C:\A\B\..\..\..`, `D:..\..\..\..`,
		`C:\.\.\X`, `C:\A\....\B`,
	} {
		_, host, drive, err := rig.r.buildHostPath(src, true)
		if err != nil {
			continue
		}
		root, _ := rig.r.hostRoot(drive)
		assert.True(t, strings.HasPrefix(host, root), "%q escaped to %q", src, host)
		assert.NotContains(t, strings.TrimPrefix(host, root), "..", src)
	}
}

func TestToGuest(t *testing.T) {
	rig := newTestRig(t)
	populate(rig)
	tests := []struct {
		host  string
		short bool
		want  string
	}{
		{"/c/LongFileName.Txt", true, `C:\LONGFI~1.TXT`},
		{"/c/LongFileName.Txt", false, `C:\LongFileName.Txt`},
		{"/c/Docs/Report 2024.doc", true, `C:\DOCS\REPORT~1.DOC`},
		{"/c/Docs/Report 2024.doc", false, `C:\Docs\Report 2024.doc`},
		{"/c/日本.txt", false, `C:\__.TXT`},
		{"/c/missing name.txt", true, `C:\MISSIN~1.TXT`},
		{"/c/missing name.txt", false, `C:\missing name.txt`},
		{"/c", false, `C:\`},
		{"/c/", true, `C:\`},
		{"/etc/passwd", false, `C:\`},
		{"/cc/x", false, `C:\`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rig.r.ToGuest(tt.host, 2, tt.short), "%s short=%v", tt.host, tt.short)
	}
}

// A file reached by its short name and one reached by its long name are the
// same host entry.
func TestShortLongEquivalence(t *testing.T) {
	rig := newTestRig(t)
	populate(rig)
	var resolved []string
	for _, src := range []string{`C:\LONGFI~1.TXT`, `C:\LongFileName.Txt`, `c:\longfilename.TXT`} {
		_, host, drive, err := rig.r.buildHostPath(src, false)
		require.NoError(t, err)
		got, _, err := rig.r.findFile(host, drive)
		require.NoError(t, err)
		resolved = append(resolved, got)
	}
	assert.Equal(t, []string{"/c/LongFileName.Txt", "/c/LongFileName.Txt", "/c/LongFileName.Txt"}, resolved)
}
