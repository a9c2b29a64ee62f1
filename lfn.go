package mfs

import (
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/soypat/mfs/internal/dostime"
)

// AttrOp selects the attribute subfunction of Attribute.
type AttrOp uint8

const (
	AttrOpGet AttrOp = iota
	AttrOpSet
	AttrOpSize
	AttrOpSetModTime
	AttrOpGetModTime
	AttrOpSetAccessTime
	AttrOpGetAccessTime
	AttrOpSetCreationTime
	AttrOpGetCreationTime
)

// writes reports whether op modifies the file.
func (op AttrOp) writes() bool { return op < 8 && op&1 != 0 }

// AttrArgs are the inputs of the set subfunctions.
type AttrArgs struct {
	Attr Attr
	Date uint16
	Time uint16
}

// AttrReply holds the outputs of the get subfunctions.
type AttrReply struct {
	Attr   Attr
	Size   int64
	Date   uint16
	Time   uint16
	Centis uint8
}

// TruenameMode selects the form Truename reports.
type TruenameMode uint8

const (
	// TruenameCanonical allows wildcards and upper-cases all but the last
	// component without touching the host.
	TruenameCanonical TruenameMode = iota
	// TruenameShort reports the short name path of an existing entry.
	TruenameShort
	// TruenameLong reports the long name path of an existing entry.
	TruenameLong
)

// OpenAction is the action mask of an extended create/open request.
type OpenAction uint16

const (
	OpenExisting OpenAction = 0x01
	OpenTruncate OpenAction = 0x02
	OpenCreate   OpenAction = 0x10
)

// OpenPlan is what CreateOpen hands to the layer doing file I/O.
type OpenPlan struct {
	// ShortPath is the guest path in short form, or the device name.
	ShortPath string
	// CreatePath is the host path to create when the entry is missing and
	// creation was requested, "" otherwise.
	CreatePath string
	Device     bool
}

// Volume information flags.
const (
	VolCasePreserved uint16 = 0x0002
	VolLFN           uint16 = 0x4000
)

// VolumeInfo describes a redirected volume's naming limits.
type VolumeInfo struct {
	Flags   uint16
	MaxName uint16
	MaxPath uint16
	FSName  string
}

// dosAttr derives DOS attributes from host metadata.
func dosAttr(name string, st HostStat) Attr {
	var attr Attr
	if st.Mode.IsDir() {
		attr |= AttrDirectory
	} else {
		attr |= AttrArchive
		if st.Mode.Perm()&0o200 == 0 {
			attr |= AttrReadOnly
		}
	}
	if len(name) > 1 && name[0] == '.' && name != ".." {
		attr |= AttrHidden
	}
	return attr
}

// hostErrno maps a host error to a DOS error, defaulting to fallback.
func hostErrno(err error, fallback Errno) Errno {
	var errno Errno
	switch {
	case errors.As(err, &errno):
		return errno
	case errors.Is(err, fs.ErrNotExist):
		return FileNotFound
	case errors.Is(err, fs.ErrPermission):
		return AccessDenied
	}
	return fallback
}

func joinHost(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

// leaf returns host with trailing slashes removed, split into its parent
// directory and last component.
func leaf(host string) (dir, name string) {
	trimmed := strings.TrimRight(host, "/")
	if trimmed == "" {
		return "/", ""
	}
	return splitHost(trimmed)
}

func (r *Redirector) mkdir(path string) error {
	canonical, host, drive, err := r.buildHostPath(path, false)
	if err != nil {
		return err
	}
	if isDevicePath(canonical) || r.drives.ReadOnly(drive) {
		return AccessDenied
	}
	dir, name := leaf(host)
	if name == "" || r.atRoot(host, drive) {
		return AccessDenied
	}
	parent, st, err := r.findFile(dir, drive)
	if err != nil || !st.Mode.IsDir() {
		return PathNotFound
	}
	target := joinHost(parent, name)
	if _, _, err := r.findFile(target, drive); err == nil {
		return AccessDenied
	}
	if !r.allow(target, true) {
		return AccessDenied
	}
	if err := r.host.Mkdir(target); err != nil {
		r.debug("mfs:mkdir", slog.String("path", target), slogErr(err))
		return hostErrno(err, AccessDenied)
	}
	return nil
}

func (r *Redirector) rmdir(path string) error {
	canonical, host, drive, err := r.buildHostPath(path, false)
	if err != nil {
		return err
	}
	if isDevicePath(canonical) {
		return PathNotFound
	}
	if r.drives.ReadOnly(drive) {
		return AccessDenied
	}
	target, st, err := r.findFile(host, drive)
	if err != nil || !st.Mode.IsDir() {
		return PathNotFound
	}
	if r.atRoot(target, drive) || !r.allow(target, true) {
		return AccessDenied
	}
	if err := r.host.Rmdir(target); err != nil {
		r.debug("mfs:rmdir", slog.String("path", target), slogErr(err))
		return hostErrno(err, AccessDenied)
	}
	return nil
}

// chdir makes path the current directory of its drive and returns it in
// short form.
func (r *Redirector) chdir(path string) (string, error) {
	_, host, drive, err := r.buildHostPath(path, false)
	if err != nil {
		return "", err
	}
	target, st, err := r.findFile(host, drive)
	if err != nil || !st.Mode.IsDir() {
		return "", PathNotFound
	}
	guest := r.ToGuest(target, drive, true)
	r.drives.SetCurrentDirectory(drive, guest[3:])
	return guest, nil
}

func (r *Redirector) remove(path string, wildcard bool, attr SearchAttr) error {
	canonical, host, drive, err := r.buildHostPath(path, wildcard)
	if err != nil {
		return err
	}
	if r.drives.ReadOnly(drive) {
		return AccessDenied
	}
	if isDevicePath(canonical) {
		return FileNotFound
	}
	if wildcard {
		return r.wildcardDelete(host, drive, attr)
	}
	target, _, err := r.findFile(host, drive)
	if err != nil {
		return err
	}
	if !r.allow(target, true) {
		return AccessDenied
	}
	if err := r.host.Remove(target); err != nil {
		r.debug("mfs:delete", slog.String("path", target), slogErr(err))
		if errors.Is(err, fs.ErrPermission) {
			return AccessDenied
		}
		return FileNotFound
	}
	return nil
}

// wildcardDelete removes every non-directory entry of the directory of host
// matching its last component. It stops at the first failure other than
// hitting a directory. Deleting nothing is FileNotFound.
func (r *Redirector) wildcardDelete(host string, drive int, attr SearchAttr) error {
	dir, pat := splitHost(host)
	if strings.HasSuffix(dir, "/.") {
		dir = dir[:len(dir)-2]
	}
	if dir == "" {
		dir = "/"
	}
	resolved, st, err := r.findFile(dir, drive)
	if err != nil || !st.Mode.IsDir() {
		return PathNotFound
	}
	ds, err := r.host.OpenDir(resolved)
	if err != nil {
		return PathNotFound
	}
	defer ds.Close()
	pattern, _ := r.codec.FromHost(pat)
	pattern = r.codec.FoldUpper(pattern)
	r.debug("mfs:wildcard-delete", slog.String("dir", resolved), slog.String("pattern", pattern))

	errno := FileNotFound
	for {
		np, err := ds.ReadEntry()
		if err == io.EOF {
			break
		} else if err != nil {
			errno = hostErrno(err, FileNotFound)
			break
		}
		if !r.codec.MatchPair(pattern, np) {
			continue
		}
		// Directories are never removed.
		if attr.Required()&AttrDirectory != 0 {
			continue
		}
		target := joinHost(resolved, np.LongName)
		if st, err := r.host.Stat(target); err == nil && st.Mode.IsDir() {
			continue
		}
		if !r.allow(target, true) {
			errno = AccessDenied
			break
		}
		if err := r.host.Remove(target); err != nil {
			if errors.Is(err, syscall.EISDIR) {
				continue
			}
			r.debug("mfs:wildcard-delete", slog.String("path", target), slogErr(err))
			errno = FileNotFound
			if errors.Is(err, fs.ErrPermission) {
				errno = AccessDenied
			}
			break
		}
		r.debug("mfs:deleted", slog.String("path", target))
		errno = 0
	}
	if errno != 0 {
		return errno
	}
	return nil
}

func (r *Redirector) rename(oldpath, newpath string) error {
	newCanon, newDrive, err := r.buildTruename(newpath, false)
	if err != nil {
		return err
	}
	oldCanon, oldDrive, err := r.buildTruename(oldpath, false)
	if err != nil {
		return err
	}
	if newDrive != oldDrive {
		return NotSameDevice
	}
	drive := oldDrive
	if r.drives.ReadOnly(drive) {
		return AccessDenied
	}
	if isDevicePath(oldCanon) || isDevicePath(newCanon) {
		return AccessDenied
	}
	from, _, err := r.findFile(r.ToHost(oldCanon, drive), drive)
	if err != nil {
		return err
	}
	newHost := r.ToHost(newCanon, drive)
	dir, name := leaf(newHost)
	if name == "" || r.atRoot(newHost, drive) {
		return AccessDenied
	}
	parent, st, err := r.findFile(dir, drive)
	if err != nil || !st.Mode.IsDir() {
		return PathNotFound
	}
	to := joinHost(parent, name)
	if existing, _, err := r.findFile(to, drive); err == nil && existing != from {
		return AccessDenied
	}
	if !r.allow(from, true) || !r.allow(to, true) {
		return AccessDenied
	}
	if err := r.host.Rename(from, to); err != nil {
		r.debug("mfs:rename", slog.String("from", from), slog.String("to", to), slogErr(err))
		if errors.Is(err, syscall.EXDEV) {
			return NotSameDevice
		}
		return hostErrno(err, AccessDenied)
	}
	return nil
}

// attribute carries out one of the attribute subfunctions on path.
func (r *Redirector) attribute(path string, op AttrOp, args AttrArgs) (AttrReply, error) {
	var reply AttrReply
	canonical, host, drive, err := r.buildHostPath(path, false)
	if err != nil {
		return reply, err
	}
	if r.drives.ReadOnly(drive) && op.writes() {
		return reply, AccessDenied
	}
	if isDevicePath(canonical) {
		return reply, FileNotFound
	}
	target, st, err := r.findFile(host, drive)
	if err != nil {
		return reply, err
	}
	if op.writes() && !r.allow(target, true) {
		return reply, AccessDenied
	}
	_, name := splitHost(target)
	switch op {
	case AttrOpGet:
		reply.Attr = dosAttr(name, st)
	case AttrOpSet:
		if st.Mode.Perm()&0o200 == 0 {
			return reply, AccessDenied
		}
		// Only regular files carry attributes.
		if !st.Mode.IsRegular() {
			break
		}
		if args.Attr.IsReadonly() {
			if err := r.host.Chmod(target, st.Mode.Perm()&^0o222); err != nil {
				return reply, AccessDenied
			}
		}
	case AttrOpSize:
		reply.Size = st.Size
	case AttrOpSetModTime:
		mtime := dostime.Unpack(args.Date, args.Time, r.loc)
		if err := r.host.Chtimes(target, st.AccessTime, mtime); err != nil {
			return reply, AccessDenied
		}
	case AttrOpGetModTime:
		reply.Date, reply.Time = dostime.Pack(st.ModTime, r.loc)
	case AttrOpSetAccessTime:
		atime := dostime.Unpack(args.Date, args.Time, r.loc)
		if err := r.host.Chtimes(target, atime, st.ModTime); err != nil {
			return reply, AccessDenied
		}
	case AttrOpGetAccessTime:
		reply.Date, _ = dostime.Pack(st.AccessTime, r.loc)
	case AttrOpSetCreationTime:
		// The host has no settable creation time.
	case AttrOpGetCreationTime:
		reply.Date, reply.Time = dostime.Pack(st.ChangeTime, r.loc)
		if st.ChangeTime.Unix()&1 != 0 {
			reply.Centis = 100
		}
	default:
		// Unknown subfunctions resolve the path and succeed without effect.
	}
	return reply, nil
}

// getcwd returns the current directory of drive in long form without the
// "X:\" prefix. Drive 0 is the current drive, 1 is A:.
func (r *Redirector) getcwd(drive int) (string, error) {
	if drive == 0 {
		drive = r.drives.CurrentDrive()
	} else {
		drive--
	}
	if drive < 0 || drive >= maxDrives {
		return "", DriveInvalid
	}
	if _, ok := r.hostRoot(drive); !ok {
		return "", ErrNotHandled
	}
	cwd := string(rune('A'+drive)) + `:\` + r.drives.CurrentDirectory(drive)
	host := r.ToHost(cwd, drive)
	if resolved, _, err := r.findFile(host, drive); err == nil {
		host = resolved
	}
	return r.ToGuest(host, drive, false)[3:], nil
}

func (r *Redirector) truenameOp(path string, mode TruenameMode) (string, error) {
	if mode > TruenameLong {
		return "", ErrNotHandled
	}
	i := 0
	if len(path) >= 2 && path[1] == ':' {
		i = 2
	}
	for ; i < len(path); i++ {
		c := path[i]
		if !ValidChar(c) && strings.IndexByte(`\/.*?`, c) < 0 &&
			(mode == TruenameLong || strings.IndexByte(" +,;=[]", c) < 0) {
			return "", FileNotFound
		}
	}
	canonical, drive, err := r.buildTruename(path, mode == TruenameCanonical)
	if err != nil {
		return "", err
	}
	if mode != TruenameCanonical {
		target, _, err := r.findFile(r.ToHost(canonical, drive), drive)
		if err != nil {
			return "", err
		}
		return r.ToGuest(target, drive, mode == TruenameShort), nil
	}
	if last := strings.LastIndexByte(canonical, '\\'); last >= 0 {
		return r.codec.FoldUpperN(canonical, last), nil
	}
	if isDevicePath(canonical) {
		return r.codec.FoldUpper(canonical), nil
	}
	return canonical, nil
}

func (r *Redirector) createOpen(path string, action OpenAction) (OpenPlan, error) {
	canonical, host, drive, err := r.buildHostPath(path, false)
	if err != nil {
		return OpenPlan{}, err
	}
	if isDevicePath(canonical) {
		return OpenPlan{ShortPath: r.codec.FoldUpper(canonical[3:]), Device: true}, nil
	}
	dir, name := leaf(host)
	if name == "" || r.atRoot(host, drive) {
		return OpenPlan{}, AccessDenied
	}
	parent, st, err := r.findFile(dir, drive)
	if err != nil || !st.Mode.IsDir() {
		return OpenPlan{}, PathNotFound
	}
	target := joinHost(parent, name)
	var plan OpenPlan
	if existing, _, err := r.findFile(target, drive); err == nil {
		target = existing
	} else if action&OpenCreate != 0 {
		if r.drives.ReadOnly(drive) || !r.allow(target, true) {
			return OpenPlan{}, AccessDenied
		}
		plan.CreatePath = target
	} else {
		return OpenPlan{}, err
	}
	plan.ShortPath = r.ToGuest(target, drive, true)
	return plan, nil
}

func (r *Redirector) volumeInfo(path string) (VolumeInfo, error) {
	if _, _, _, err := r.buildHostPath(path, false); err != nil {
		return VolumeInfo{}, err
	}
	return VolumeInfo{
		Flags:   VolLFN | VolCasePreserved,
		MaxName: 255,
		MaxPath: 260,
		FSName:  "MFS",
	}, nil
}
