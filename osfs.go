package mfs

import (
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/pkg/errors"
)

// OSHost is a HostFS over the operating system's filesystem.
type OSHost struct {
	codec *Codec
}

var _ HostFS = (*OSHost)(nil)

// NewOSHost returns a HostFS backed by package os. Short names of directory
// entries are generated with codec.
func NewOSHost(codec *Codec) *OSHost {
	return &OSHost{codec: codec}
}

// osDir streams the entries of an open directory, starting with the
// synthetic "." and ".." entries.
type osDir struct {
	f     *os.File
	codec *Codec
	dots  int
	buf   []fs.DirEntry
}

const osDirBatch = 64

func (h *OSHost) OpenDir(path string) (DirStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opendir")
	}
	return &osDir{f: f, codec: h.codec}, nil
}

func (d *osDir) ReadEntry() (NamePair, error) {
	if d.dots < 2 {
		d.dots++
		name := ".."[:d.dots]
		return NamePair{ShortName: name, LongName: name}, nil
	}
	if len(d.buf) == 0 {
		entries, err := d.f.ReadDir(osDirBatch)
		if len(entries) == 0 {
			if err == nil || err == io.EOF {
				return NamePair{}, io.EOF
			}
			return NamePair{}, errors.Wrap(err, "readdir")
		}
		d.buf = entries
	}
	name := d.buf[0].Name()
	d.buf = d.buf[1:]
	return NamePair{ShortName: d.codec.ShortName(name), LongName: name}, nil
}

func (d *osDir) Close() error { return d.f.Close() }

func (h *OSHost) Stat(path string) (HostStat, error) {
	return statHost(path)
}

func (h *OSHost) Mkdir(path string) error {
	return errors.Wrap(os.Mkdir(path, 0o755), "mkdir")
}

func (h *OSHost) Rmdir(path string) error {
	return errors.Wrap(rmdirHost(path), "rmdir")
}

// Remove unlinks path and fails on directories.
func (h *OSHost) Remove(path string) error {
	return errors.Wrap(unlinkHost(path), "remove")
}

func (h *OSHost) Rename(oldpath, newpath string) error {
	return errors.Wrap(os.Rename(oldpath, newpath), "rename")
}

func (h *OSHost) Chmod(path string, mode fs.FileMode) error {
	return errors.Wrap(os.Chmod(path, mode), "chmod")
}

func (h *OSHost) Chtimes(path string, atime, mtime time.Time) error {
	return errors.Wrap(os.Chtimes(path, atime, mtime), "chtimes")
}

// hostStat fills a HostStat from portable file information.
func hostStat(fi fs.FileInfo) HostStat {
	return HostStat{
		Mode:       fi.Mode(),
		Size:       fi.Size(),
		ModTime:    fi.ModTime(),
		AccessTime: fi.ModTime(),
		ChangeTime: fi.ModTime(),
	}
}
