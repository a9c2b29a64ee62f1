package mfs

import (
	"io"
	"io/fs"
	"slices"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memHost is an in-memory HostFS. Paths are absolute and slash separated.
type memHost struct {
	codec *Codec
	root  *memNode
	now   time.Time
	// locked paths fail Remove with fs.ErrPermission.
	locked map[string]bool
}

type memNode struct {
	mode     fs.FileMode
	size     int64
	mtime    time.Time
	atime    time.Time
	children map[string]*memNode
}

func newMemHost(t testing.TB, codec *Codec) *memHost {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 30, 10, 0, time.UTC)
	return &memHost{
		codec: codec,
		now:   now,
		root:  &memNode{mode: fs.ModeDir | 0o755, mtime: now, atime: now, children: map[string]*memNode{}},
	}
}

func memSplit(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func (h *memHost) lookup(path string) *memNode {
	stack := []*memNode{h.root}
	for _, seg := range memSplit(path) {
		n := stack[len(stack)-1]
		switch {
		case n.children == nil:
			return nil
		case seg == ".":
			continue
		case seg == "..":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		n = n.children[seg]
		if n == nil {
			return nil
		}
		stack = append(stack, n)
	}
	return stack[len(stack)-1]
}

func (h *memHost) parent(path string) (*memNode, string) {
	segs := memSplit(path)
	if len(segs) == 0 {
		return nil, ""
	}
	p := h.lookup("/" + strings.Join(segs[:len(segs)-1], "/"))
	if p == nil || p.children == nil {
		return nil, ""
	}
	return p, segs[len(segs)-1]
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

// mkdirAll creates path and its parents.
func (h *memHost) mkdirAll(path string) {
	n := h.root
	for _, seg := range memSplit(path) {
		c := n.children[seg]
		if c == nil {
			c = &memNode{mode: fs.ModeDir | 0o755, mtime: h.now, atime: h.now, children: map[string]*memNode{}}
			n.children[seg] = c
		}
		n = c
	}
}

// writeFile creates a regular file of the given size, creating parents.
func (h *memHost) writeFile(path string, size int64) {
	dir, name := splitHost(path)
	h.mkdirAll(dir)
	h.lookup(dir).children[name] = &memNode{mode: 0o644, size: size, mtime: h.now, atime: h.now}
}

func (h *memHost) exists(path string) bool { return h.lookup(path) != nil }

// denyGate refuses writes to the listed host paths.
type denyGate map[string]bool

func (g denyGate) Allow(hostPath string, write bool) bool { return !write || !g[hostPath] }

type memDir struct {
	codec *Codec
	names []string
}

func (h *memHost) OpenDir(path string) (DirStream, error) {
	n := h.lookup(path)
	if n == nil {
		return nil, notExist("opendir", path)
	}
	if n.children == nil {
		return nil, &fs.PathError{Op: "opendir", Path: path, Err: syscall.ENOTDIR}
	}
	names := []string{".", ".."}
	var sorted []string
	for name := range n.children {
		sorted = append(sorted, name)
	}
	slices.Sort(sorted)
	return &memDir{codec: h.codec, names: append(names, sorted...)}, nil
}

func (d *memDir) ReadEntry() (NamePair, error) {
	if len(d.names) == 0 {
		return NamePair{}, io.EOF
	}
	name := d.names[0]
	d.names = d.names[1:]
	short := name
	if name != "." && name != ".." {
		short = d.codec.ShortName(name)
	}
	return NamePair{ShortName: short, LongName: name}, nil
}

func (d *memDir) Close() error { return nil }

func (h *memHost) Stat(path string) (HostStat, error) {
	n := h.lookup(path)
	if n == nil {
		return HostStat{}, notExist("stat", path)
	}
	return HostStat{Mode: n.mode, Size: n.size, ModTime: n.mtime, AccessTime: n.atime, ChangeTime: n.mtime}, nil
}

func (h *memHost) Mkdir(path string) error {
	p, name := h.parent(path)
	if p == nil {
		return notExist("mkdir", path)
	}
	if p.children[name] != nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	p.children[name] = &memNode{mode: fs.ModeDir | 0o755, mtime: h.now, atime: h.now, children: map[string]*memNode{}}
	return nil
}

func (h *memHost) Rmdir(path string) error {
	p, name := h.parent(path)
	if p == nil || p.children[name] == nil {
		return notExist("rmdir", path)
	}
	n := p.children[name]
	switch {
	case n.children == nil:
		return &fs.PathError{Op: "rmdir", Path: path, Err: syscall.ENOTDIR}
	case len(n.children) > 0:
		return &fs.PathError{Op: "rmdir", Path: path, Err: syscall.ENOTEMPTY}
	}
	delete(p.children, name)
	return nil
}

func (h *memHost) Remove(path string) error {
	p, name := h.parent(path)
	if p == nil || p.children[name] == nil {
		return notExist("unlink", path)
	}
	if p.children[name].children != nil {
		return &fs.PathError{Op: "unlink", Path: path, Err: syscall.EISDIR}
	}
	if h.locked[path] {
		return &fs.PathError{Op: "unlink", Path: path, Err: fs.ErrPermission}
	}
	delete(p.children, name)
	return nil
}

func (h *memHost) Rename(oldpath, newpath string) error {
	op, oname := h.parent(oldpath)
	np, nname := h.parent(newpath)
	if op == nil || op.children[oname] == nil || np == nil {
		return notExist("rename", oldpath)
	}
	n := op.children[oname]
	delete(op.children, oname)
	np.children[nname] = n
	return nil
}

func (h *memHost) Chmod(path string, mode fs.FileMode) error {
	n := h.lookup(path)
	if n == nil {
		return notExist("chmod", path)
	}
	n.mode = n.mode&^fs.ModePerm | mode.Perm()
	return nil
}

func (h *memHost) Chtimes(path string, atime, mtime time.Time) error {
	n := h.lookup(path)
	if n == nil {
		return notExist("chtimes", path)
	}
	n.atime, n.mtime = atime, mtime
	return nil
}

// testRig holds a redirector over an in-memory host with C: at /c, a
// read-only D: at /d whose current directory is GAMES\DOOM, and A: to E:
// as the valid drive letters.
type testRig struct {
	r      *Redirector
	host   *memHost
	drives *DriveMap
}

func newTestRig(t testing.TB) *testRig {
	t.Helper()
	codec, err := NewCodec(437)
	require.NoError(t, err)
	host := newMemHost(t, codec)
	host.mkdirAll("/c")
	host.mkdirAll("/d/GAMES/DOOM")
	dm := NewDriveMap()
	require.NoError(t, dm.SetLastDrive(5))
	require.NoError(t, dm.Mount('C', Drive{Root: "/c", Label: "HOSTC"}))
	require.NoError(t, dm.Mount('D', Drive{Root: "/d/", ReadOnly: true, Cwd: `GAMES\DOOM`}))
	r, err := New(Config{
		Drives:   dm,
		Host:     host,
		Location: time.UTC,
		Metrics:  NewMetrics(nil),
	})
	require.NoError(t, err)
	return &testRig{r: r, host: host, drives: dm}
}
