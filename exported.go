package mfs

import (
	"log/slog"

	"github.com/soypat/mfs/internal/dostime"
)

// done records the outcome of an operation.
func (r *Redirector) done(op string, err error) error {
	r.metrics.observe(op, err)
	if err != nil && err != ErrNotHandled {
		r.debug("mfs:"+op, slogErr(err))
	}
	return err
}

// Reset is the reset-drive request. Redirected drives hold no cached state.
func (r *Redirector) Reset() error {
	return r.done("reset", nil)
}

// Mkdir creates the directory named by the guest path.
func (r *Redirector) Mkdir(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done("mkdir", r.mkdir(path))
}

// Rmdir removes the empty directory named by the guest path.
func (r *Redirector) Rmdir(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done("rmdir", r.rmdir(path))
}

// Chdir sets the current directory of the path's drive and returns the new
// directory as a short name path.
func (r *Redirector) Chdir(path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dir, err := r.chdir(path)
	return dir, r.done("chdir", err)
}

// Delete removes the file named by path. If wildcard is set the last
// component is a pattern and every matching file in its directory is
// removed. attr is the search attribute of a wildcard delete.
func (r *Redirector) Delete(path string, wildcard bool, attr SearchAttr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done("delete", r.remove(path, wildcard, attr))
}

// Rename moves oldpath to newpath, which must be on the same drive.
func (r *Redirector) Rename(oldpath, newpath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done("rename", r.rename(oldpath, newpath))
}

// Attribute carries out one attribute subfunction.
func (r *Redirector) Attribute(path string, op AttrOp, args AttrArgs) (AttrReply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reply, err := r.attribute(path, op, args)
	return reply, r.done("attribute", err)
}

// GetAttributes returns the DOS attributes of path.
func (r *Redirector) GetAttributes(path string) (Attr, error) {
	reply, err := r.Attribute(path, AttrOpGet, AttrArgs{})
	return reply.Attr, err
}

// SetAttributes sets the DOS attributes of path. Only the read-only bit
// reaches the host.
func (r *Redirector) SetAttributes(path string, attr Attr) error {
	_, err := r.Attribute(path, AttrOpSet, AttrArgs{Attr: attr})
	return err
}

// PhysicalSize returns the size of path in bytes.
func (r *Redirector) PhysicalSize(path string) (int64, error) {
	reply, err := r.Attribute(path, AttrOpSize, AttrArgs{})
	return reply.Size, err
}

// ModTime returns the last write time of path as DOS date and time words.
func (r *Redirector) ModTime(path string) (date, tm uint16, err error) {
	reply, err := r.Attribute(path, AttrOpGetModTime, AttrArgs{})
	return reply.Date, reply.Time, err
}

// SetModTime sets the last write time of path.
func (r *Redirector) SetModTime(path string, date, tm uint16) error {
	_, err := r.Attribute(path, AttrOpSetModTime, AttrArgs{Date: date, Time: tm})
	return err
}

// AccessDate returns the last access date of path.
func (r *Redirector) AccessDate(path string) (date uint16, err error) {
	reply, err := r.Attribute(path, AttrOpGetAccessTime, AttrArgs{})
	return reply.Date, err
}

// SetAccessTime sets the last access time of path.
func (r *Redirector) SetAccessTime(path string, date, tm uint16) error {
	_, err := r.Attribute(path, AttrOpSetAccessTime, AttrArgs{Date: date, Time: tm})
	return err
}

// CreationTime returns the creation time of path. Hosts without a birth
// time report the inode change time.
func (r *Redirector) CreationTime(path string) (date, tm uint16, centis uint8, err error) {
	reply, err := r.Attribute(path, AttrOpGetCreationTime, AttrArgs{})
	return reply.Date, reply.Time, reply.Centis, err
}

// SetCreationTime accepts and ignores a new creation time.
func (r *Redirector) SetCreationTime(path string, date, tm uint16) error {
	_, err := r.Attribute(path, AttrOpSetCreationTime, AttrArgs{Date: date, Time: tm})
	return err
}

// GetCurrentDirectory returns the current directory of drive, 0 for the
// current drive and 1 for A:, in long form and without the drive prefix.
func (r *Redirector) GetCurrentDirectory(drive int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dir, err := r.getcwd(drive)
	return dir, r.done("getcwd", err)
}

// Truename returns the fully qualified form of path.
func (r *Redirector) Truename(path string, mode TruenameMode) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, err := r.truenameOp(path, mode)
	return name, r.done("truename", err)
}

// FindFirst starts a search for the pattern in the last component of path
// and returns its handle with the first match. A search that matches
// nothing leaves no session behind.
func (r *Redirector) FindFirst(path string, attr SearchAttr, owner Owner, format TimeFormat) (int, FindResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, res, err := r.findFirst(path, attr, owner, format)
	return h, res, r.done("findfirst", err)
}

func (r *Redirector) findFirst(path string, attr SearchAttr, owner Owner, format TimeFormat) (int, FindResult, error) {
	canonical, host, drive, err := r.buildHostPath(path, true)
	if err != nil {
		return 0, FindResult{}, err
	}
	if r.sessions.full() {
		r.warn("mfs:findfirst:table-full", slog.Int("sessions", maxSessions))
		return 0, FindResult{}, NoMoreFiles
	}
	dir, pat := splitHost(host)
	pattern, _ := r.codec.FromHost(pat)
	s := &session{
		drive:   drive,
		dir:     dir,
		pattern: r.codec.FoldUpper(pattern),
		attr:    attr,
		owner:   owner,
	}
	if attr.Allowed()&(AttrVolume|AttrDirectory) == AttrVolume && isMatchAll(pat) {
		h, err := r.sessions.open(s)
		if err != nil {
			return 0, FindResult{}, err
		}
		r.metrics.sessionOpened(r.sessions.active())
		return h, FindResult{Attr: AttrVolume, LongName: r.drives.VolumeLabel(drive)}, nil
	}
	if isDevicePath(canonical) {
		return 0, FindResult{}, NoMoreFiles
	}
	resolved, st, err := r.findFile(dir, drive)
	if err != nil || !st.Mode.IsDir() {
		return 0, FindResult{}, NoMoreFiles
	}
	ds, err := r.host.OpenDir(resolved)
	if err != nil {
		r.debug("mfs:findfirst:opendir", slog.String("dir", resolved), slogErr(err))
		return 0, FindResult{}, NoMoreFiles
	}
	s.dir = resolved
	s.atRoot = r.atRoot(resolved, drive)
	s.stream = ds
	h, err := r.sessions.open(s)
	if err != nil {
		ds.Close()
		return 0, FindResult{}, err
	}
	r.metrics.sessionOpened(r.sessions.active())
	r.debug("mfs:findfirst", slog.Int("handle", h), slog.String("dir", resolved), slog.String("pattern", s.pattern))
	res, err := r.next(s, format)
	if err != nil {
		r.sessions.close(h)
		r.metrics.sessionClosed("exhausted", 1, r.sessions.active())
		return 0, FindResult{}, err
	}
	return h, res, nil
}

// FindNext returns the next match of the search with the given handle.
// Unknown and exhausted handles report NoMoreFiles; an exhausted handle
// stays allocated until FindClose.
func (r *Redirector) FindNext(handle int, format TimeFormat) (FindResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions.get(handle)
	if s == nil {
		return FindResult{}, r.done("findnext", NoMoreFiles)
	}
	res, err := r.next(s, format)
	return res, r.done("findnext", err)
}

// FindClose releases a search handle.
func (r *Redirector) FindClose(handle int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sessions.close(handle) {
		return r.done("findclose", HandleInvalid)
	}
	r.metrics.sessionClosed("close", 1, r.sessions.active())
	return r.done("findclose", nil)
}

// CloseAll releases every search owned by a terminating process and
// returns how many were open.
func (r *Redirector) CloseAll(owner Owner) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.sessions.closeAll(owner)
	r.metrics.sessionClosed("owner_exit", n, r.sessions.active())
	if n > 0 {
		r.debug("mfs:closeall", slog.Int("owner", int(owner)), slog.Int("closed", n))
	}
	return n
}

// ActiveSessions returns the number of allocated search handles.
func (r *Redirector) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.active()
}

// CreateOpen checks an extended create/open request and returns the names
// the file I/O layer should use.
func (r *Redirector) CreateOpen(path string, action OpenAction) (OpenPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, err := r.createOpen(path, action)
	return plan, r.done("createopen", err)
}

// GenerateShortName returns the upper case short name of an OEM name, in
// dotted form or, if fcb is set, as the 11 byte blank padded form.
func (r *Redirector) GenerateShortName(name string, fcb bool) string {
	short := r.codec.FoldUpper(r.codec.Mangle(name))
	if fcb {
		b := FCBName(short)
		return string(b[:])
	}
	return short
}

// VolumeInfo reports the naming limits of the volume holding path.
func (r *Redirector) VolumeInfo(path string) (VolumeInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, err := r.volumeInfo(path)
	return info, r.done("volinfo", err)
}

// FileTimeToDOS converts a FILETIME to packed DOS date and time.
func (r *Redirector) FileTimeToDOS(ft uint64) (date, tm uint16) {
	return dostime.Pack(dostime.FromFileTime(ft), r.loc)
}

// DOSToFileTime converts packed DOS date and time to a FILETIME.
func (r *Redirector) DOSToFileTime(date, tm uint16) uint64 {
	return dostime.ToFileTime(dostime.Unpack(date, tm, r.loc))
}
