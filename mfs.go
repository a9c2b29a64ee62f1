package mfs

import (
	"context"
	"io/fs"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	maxDrives   = 26
	maxPath     = 256 // Longest canonical guest path.
	maxSessions = 20  // Concurrent find sessions, handles 1..maxSessions.
)

// Errno is a DOS error code. Redirector operations return one of the
// constants below or ErrNotHandled.
type Errno uint16

const (
	FileNotFound  Errno = 2
	PathNotFound  Errno = 3
	AccessDenied  Errno = 5
	HandleInvalid Errno = 6
	DriveInvalid  Errno = 15
	NotSameDevice Errno = 17
	NoMoreFiles   Errno = 18
)

func (e Errno) Error() string {
	return "mfs.errno:" + strconv.Itoa(int(e)) + " " + e.String()
}

func (e Errno) String() string {
	switch e {
	case FileNotFound:
		return "file not found"
	case PathNotFound:
		return "path not found"
	case AccessDenied:
		return "access denied"
	case HandleInvalid:
		return "invalid handle"
	case DriveInvalid:
		return "invalid drive"
	case NotSameDevice:
		return "not same device"
	case NoMoreFiles:
		return "no more files"
	}
	return "errno " + strconv.Itoa(int(e))
}

// ErrNotHandled reports that a request belongs to the default DOS handler,
// for example a UNC path or a drive without a redirection root. It is never
// an Errno.
var ErrNotHandled = errors.New("mfs: request not handled")

// Attr is the DOS attribute byte of a directory entry.
type Attr uint8

const (
	AttrReadOnly Attr = 1 << iota
	AttrHidden
	AttrSystem
	AttrVolume
	AttrDirectory
	AttrArchive
	AttrDevice
)

// IsReadonly indicates that the file is read-only and must not be written to.
func (attr Attr) IsReadonly() bool { return attr&AttrReadOnly != 0 }

// IsHidden indicates that the file should not be shown in directory listings.
func (attr Attr) IsHidden() bool { return attr&AttrHidden != 0 }

// IsVolumeLabel indicates a synthetic volume label entry.
func (attr Attr) IsVolumeLabel() bool { return attr&AttrVolume != 0 }

// IsSubdirectory indicates a directory entry.
func (attr Attr) IsSubdirectory() bool { return attr&AttrDirectory != 0 }

// IsArchive reports the archive bit.
func (attr Attr) IsArchive() bool { return attr&AttrArchive != 0 }

// SearchAttr filters find and wildcard delete requests. The low byte holds
// the attributes an entry is allowed to have, the high byte those it must
// have.
type SearchAttr uint16

// Allowed returns the attributes a matching entry may carry.
func (sa SearchAttr) Allowed() Attr { return Attr(sa) }

// Required returns the attributes a matching entry must carry.
func (sa SearchAttr) Required() Attr { return Attr(sa >> 8) }

// NamePair is the dual identity of a directory entry. ShortName is the 8.3
// name in OEM bytes, LongName the host name in UTF-8.
type NamePair struct {
	ShortName string
	LongName  string
}

// DirStream yields the entries of one host directory, returning io.EOF after
// the last one. Entries "." and ".." may be included.
type DirStream interface {
	ReadEntry() (NamePair, error)
	Close() error
}

// HostStat is the subset of host file metadata the redirector reports.
type HostStat struct {
	Mode       fs.FileMode
	Size       int64
	ModTime    time.Time
	AccessTime time.Time
	ChangeTime time.Time
}

// HostFS is the host filesystem beneath the redirection roots. Remove must
// refuse directories.
type HostFS interface {
	OpenDir(path string) (DirStream, error)
	Stat(path string) (HostStat, error)
	Mkdir(path string) error
	Rmdir(path string) error
	Remove(path string) error
	Rename(oldpath, newpath string) error
	Chmod(path string, mode fs.FileMode) error
	Chtimes(path string, atime, mtime time.Time) error
}

// DriveTable holds the per drive state owned by the surrounding emulator.
// Drives are numbered from 0 for A:. CurrentDirectory returns the path below
// the drive root without a leading separator in short name form, "" for the
// root.
type DriveTable interface {
	RedirectionRoot(drive int) (root string, ok bool)
	ReadOnly(drive int) bool
	CurrentDirectory(drive int) string
	SetCurrentDirectory(drive int, dir string)
	CurrentDrive() int
	LastDrive() int
	VolumeLabel(drive int) string
}

// PrivilegeGate decides whether a host path may be touched at all. A nil
// gate allows everything.
type PrivilegeGate interface {
	Allow(hostPath string, write bool) bool
}

// Owner tags find sessions with the guest process that opened them.
type Owner uint16

// Config groups the collaborators of a Redirector.
type Config struct {
	Drives DriveTable
	Host   HostFS
	// Gate is optional.
	Gate PrivilegeGate
	// CodePage selects the OEM code page of guest names, 437 when zero.
	CodePage int
	// Location is the zone DOS timestamps are expressed in, time.Local when nil.
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *Metrics
}

// Redirector resolves guest paths on redirected drives and carries out the
// long file name requests of a single emulated machine.
type Redirector struct {
	drives  DriveTable
	host    HostFS
	gate    PrivilegeGate
	codec   *Codec
	loc     *time.Location
	log     *slog.Logger
	metrics *Metrics

	mu       sync.Mutex
	sessions sessionTable
}

// New returns a Redirector over the given collaborators.
func New(cfg Config) (*Redirector, error) {
	if cfg.Drives == nil || cfg.Host == nil {
		return nil, errors.New("mfs: drive table and host filesystem required")
	}
	codec, err := NewCodec(cfg.CodePage)
	if err != nil {
		return nil, err
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	r := &Redirector{
		drives:  cfg.Drives,
		host:    cfg.Host,
		gate:    cfg.Gate,
		codec:   codec,
		loc:     loc,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
	}
	r.info("mfs:new", slog.Int("codepage", codec.CodePage()), slog.String("tz", loc.String()),
		slog.Int("lastdrive", cfg.Drives.LastDrive()))
	return r, nil
}

// Codec returns the name codec used by r.
func (r *Redirector) Codec() *Codec { return r.codec }

func (r *Redirector) allow(hostPath string, write bool) bool {
	return r.gate == nil || r.gate.Allow(hostPath, write)
}

// hostRoot returns the drive's redirection root ending in a slash.
func (r *Redirector) hostRoot(drive int) (string, bool) {
	if drive < 0 || drive >= maxDrives {
		return "", false
	}
	root, ok := r.drives.RedirectionRoot(drive)
	if !ok || root == "" {
		return "", false
	}
	if root[len(root)-1] != '/' {
		root += "/"
	}
	return root, true
}

func (r *Redirector) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	if r.log != nil {
		r.log.LogAttrs(context.Background(), level, msg, attrs...)
	}
}

func (r *Redirector) debug(msg string, attrs ...slog.Attr) {
	r.logattrs(slog.LevelDebug, msg, attrs...)
}
func (r *Redirector) info(msg string, attrs ...slog.Attr) {
	r.logattrs(slog.LevelInfo, msg, attrs...)
}
func (r *Redirector) warn(msg string, attrs ...slog.Attr) {
	r.logattrs(slog.LevelWarn, msg, attrs...)
}
func (r *Redirector) logerror(msg string, attrs ...slog.Attr) {
	r.logattrs(slog.LevelError, msg, attrs...)
}

type _integer interface {
	~uint8 | ~uint16 | ~uint32 | ~int | ~int32 | ~uint
}

func b2i[T _integer](b bool) T {
	if b {
		return 1
	}
	return 0
}

func isSep[T _integer](c T) bool { return c == '/' || c == '\\' }

func slogErr(err error) slog.Attr { return slog.String("err", err.Error()) }
