package mfs

import "log/slog"

// Func is the sub-function code of a long file name request.
type Func uint8

const (
	FuncReset          Func = 0x0d
	FuncMkdir          Func = 0x39
	FuncRmdir          Func = 0x3a
	FuncChdir          Func = 0x3b
	FuncDelete         Func = 0x41
	FuncLongSeek       Func = 0x42
	FuncAttribute      Func = 0x43
	FuncGetCwd         Func = 0x47
	FuncFindFirst      Func = 0x4e
	FuncFindNext       Func = 0x4f
	FuncRename         Func = 0x56
	FuncTruename       Func = 0x60
	FuncCreateOpen     Func = 0x6c
	FuncVolumeInfo     Func = 0xa0
	FuncFindClose      Func = 0xa1
	FuncFindNextAlt    Func = 0xa2
	FuncFileInfo       Func = 0xa6
	FuncTimeConvert    Func = 0xa7
	FuncShortName      Func = 0xa8
	FuncServerOpen     Func = 0xa9
	FuncSubst          Func = 0xaa
)

// Request is a decoded long file name request. Only the fields used by
// Func are read.
type Request struct {
	Func  Func
	Path  string // Primary guest path.
	Path2 string // Rename destination.
	// Drive is the drive argument of FuncGetCwd, 0 for the current drive.
	Drive  int
	Handle int
	Owner  Owner
	// Attr is the search attribute of find and delete requests.
	Attr     SearchAttr
	Wildcard bool
	Format   TimeFormat
	// Sub selects the subfunction of FuncAttribute, the mode of
	// FuncTruename, the direction of FuncTimeConvert (0 is FILETIME to DOS)
	// and the form of FuncShortName (0 is the FCB form).
	Sub      uint8
	AttrArgs AttrArgs
	Action   OpenAction
	FileTime uint64
	// Date and Time are the DOS input of FuncTimeConvert.
	Date uint16
	Time uint16
}

// Reply carries the results of a request.
type Reply struct {
	Path     string
	Handle   int
	Find     FindResult
	Attr     AttrReply
	Open     OpenPlan
	Volume   VolumeInfo
	FileTime uint64
	Date     uint16
	Time     uint16
}

// Call dispatches req to the matching Redirector method. Requests this
// package does not serve return ErrNotHandled so that the caller can forward
// them to the default handler.
func (r *Redirector) Call(req Request) (Reply, error) {
	var (
		rep Reply
		err error
	)
	r.debug("mfs:call", slog.Int("func", int(req.Func)), slog.String("path", req.Path))
	switch req.Func {
	case FuncReset:
		err = r.Reset()
	case FuncMkdir:
		err = r.Mkdir(req.Path)
	case FuncRmdir:
		err = r.Rmdir(req.Path)
	case FuncChdir:
		rep.Path, err = r.Chdir(req.Path)
	case FuncDelete:
		err = r.Delete(req.Path, req.Wildcard, req.Attr)
	case FuncAttribute:
		rep.Attr, err = r.Attribute(req.Path, AttrOp(req.Sub), req.AttrArgs)
	case FuncGetCwd:
		rep.Path, err = r.GetCurrentDirectory(req.Drive)
	case FuncFindFirst:
		rep.Handle, rep.Find, err = r.FindFirst(req.Path, req.Attr, req.Owner, req.Format)
	case FuncFindNext, FuncFindNextAlt:
		rep.Handle = req.Handle
		rep.Find, err = r.FindNext(req.Handle, req.Format)
	case FuncFindClose:
		err = r.FindClose(req.Handle)
	case FuncRename:
		err = r.Rename(req.Path, req.Path2)
	case FuncTruename:
		rep.Path, err = r.Truename(req.Path, TruenameMode(req.Sub))
	case FuncCreateOpen:
		rep.Open, err = r.CreateOpen(req.Path, req.Action)
		rep.Path = rep.Open.ShortPath
	case FuncVolumeInfo:
		rep.Volume, err = r.VolumeInfo(req.Path)
	case FuncTimeConvert:
		if req.Sub == 0 {
			rep.Date, rep.Time = r.FileTimeToDOS(req.FileTime)
		} else {
			rep.FileTime = r.DOSToFileTime(req.Date, req.Time)
		}
	case FuncShortName:
		rep.Path = r.GenerateShortName(req.Path, req.Sub == 0)
	default:
		// Long seek and file info by handle work on open files, server
		// open and subst belong to the kernel.
		r.metrics.observe("unknown", ErrNotHandled)
		err = ErrNotHandled
	}
	return rep, err
}
