package mfs

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/soypat/mfs/internal/dostime"
)

// TimeFormat selects how find results carry timestamps.
type TimeFormat uint8

const (
	// TimeFileTime reports 100ns intervals since 1601, the Win32 FILETIME.
	TimeFileTime TimeFormat = iota
	// TimeDOS reports packed DOS time in the low and date in the high word.
	TimeDOS
)

// FindTime is a timestamp in the TimeFormat a search was asked for.
type FindTime uint64

// DOS splits a TimeDOS value into its date and time words.
func (ft FindTime) DOS() (date, tm uint16) { return uint16(ft >> 16), uint16(ft) }

// FindResult describes one entry produced by FindFirst or FindNext.
type FindResult struct {
	Attr     Attr
	Size     int64
	Created  FindTime
	Accessed FindTime
	Modified FindTime
	// LongName is the entry's name in OEM bytes.
	LongName string
	// ShortName is empty when it equals LongName ignoring case.
	ShortName string
}

// session is one find-first/find-next enumeration.
type session struct {
	drive   int
	dir     string // Resolved host directory.
	atRoot  bool
	pattern string // Upper case OEM pattern.
	attr    SearchAttr
	owner   Owner
	stream  DirStream // nil once exhausted and for volume label searches.
}

// sessionTable is a bounded slot table. The slot index is the handle and
// slot 0 is never used.
type sessionTable struct {
	slots [maxSessions + 1]*session
}

func (t *sessionTable) full() bool { return t.lowestFree() == 0 }

func (t *sessionTable) lowestFree() int {
	for h := 1; h <= maxSessions; h++ {
		if t.slots[h] == nil {
			return h
		}
	}
	return 0
}

// open stores s in the lowest free slot.
func (t *sessionTable) open(s *session) (int, error) {
	h := t.lowestFree()
	if h == 0 {
		return 0, NoMoreFiles
	}
	t.slots[h] = s
	return h, nil
}

func (t *sessionTable) get(h int) *session {
	if h < 1 || h > maxSessions {
		return nil
	}
	return t.slots[h]
}

// close releases handle h and its directory stream. It reports false for an
// out of range or free handle.
func (t *sessionTable) close(h int) bool {
	s := t.get(h)
	if s == nil {
		return false
	}
	if s.stream != nil {
		s.stream.Close()
	}
	t.slots[h] = nil
	return true
}

// closeAll releases every session of owner and returns how many there were.
func (t *sessionTable) closeAll(owner Owner) (n int) {
	for h := 1; h <= maxSessions; h++ {
		if s := t.slots[h]; s != nil && s.owner == owner {
			t.close(h)
			n++
		}
	}
	return n
}

func (t *sessionTable) active() (n int) {
	for _, s := range t.slots {
		n += b2i[int](s != nil)
	}
	return n
}

// next reads entries from s until one passes every filter. Exhaustion closes
// the stream but leaves the slot to the caller.
func (r *Redirector) next(s *session, format TimeFormat) (FindResult, error) {
	if s.stream == nil {
		return FindResult{}, NoMoreFiles
	}
	for {
		np, err := s.stream.ReadEntry()
		if err != nil {
			if err != io.EOF {
				r.logerror("mfs:findnext:readdir", slog.String("dir", s.dir), slogErr(err))
			}
			s.stream.Close()
			s.stream = nil
			return FindResult{}, NoMoreFiles
		}
		res, ok := r.findEntry(s, np, format)
		if ok {
			return res, nil
		}
	}
}

func (r *Redirector) findEntry(s *session, np NamePair, format TimeFormat) (FindResult, bool) {
	if !r.codec.MatchPair(s.pattern, np) {
		return FindResult{}, false
	}
	if s.atRoot && (np.LongName == "." || np.LongName == "..") {
		return FindResult{}, false
	}
	hostPath := s.dir + "/" + np.LongName
	if s.dir == "/" {
		hostPath = "/" + np.LongName
	}
	st, err := r.host.Stat(hostPath)
	if err != nil {
		r.debug("mfs:findnext:stat", slog.String("path", hostPath), slogErr(err))
		return FindResult{}, false
	}
	if st.Mode.IsDir() {
		if s.attr.Allowed()&AttrDirectory == 0 {
			return FindResult{}, false
		}
	} else if s.attr.Required()&AttrDirectory != 0 {
		return FindResult{}, false
	}
	res := FindResult{
		Attr:     dosAttr(np.LongName, st),
		Size:     st.Size,
		Created:  r.findTime(st.ChangeTime, format),
		Accessed: r.findTime(st.AccessTime, format),
		Modified: r.findTime(st.ModTime, format),
	}
	res.LongName = r.codec.guestName(np.LongName, false)
	short := r.codec.FoldUpper(r.codec.Mangle(np.ShortName))
	if short != r.codec.FoldUpper(res.LongName) {
		res.ShortName = short
	}
	return res, true
}

func (r *Redirector) findTime(t time.Time, format TimeFormat) FindTime {
	if format == TimeDOS {
		date, tm := dostime.Pack(t, r.loc)
		return FindTime(tm) | FindTime(date)<<16
	}
	return FindTime(dostime.ToFileTime(t))
}

// isMatchAll reports whether a search pattern selects every name.
func isMatchAll(pattern string) bool { return pattern == "*" || pattern == "*.*" }

func (r *Redirector) atRoot(dir string, drive int) bool {
	root, _ := r.hostRoot(drive)
	return strings.TrimSuffix(dir, "/") == strings.TrimSuffix(root, "/")
}
