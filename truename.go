package mfs

import (
	"strings"

	"github.com/pkg/errors"
)

// Separator emission state of the segment walk.
type sepmode uint8

const (
	sepNone sepmode = iota
	sepAdd
	sepUnlessLast // Add a separator only if another segment follows.
)

// Flags returned by pushName.
const (
	pnWildcard uint8 = 1 << iota
	pnWildcardStar
)

// pathBuilder accumulates a canonical guest path. buf always starts with
// "X:" and root is the index of the root separator, which for device paths
// is '/'.
type pathBuilder struct {
	buf  []byte
	root int
	sep  byte
}

func newPathBuilder(drive int) *pathBuilder {
	pb := &pathBuilder{buf: make([]byte, 0, maxPath), root: 2, sep: '\\'}
	pb.buf = append(pb.buf, byte('A'+drive), ':')
	return pb
}

func (pb *pathBuilder) push(c byte) bool {
	if len(pb.buf) >= maxPath {
		return false
	}
	pb.buf = append(pb.buf, c)
	return true
}

func (pb *pathBuilder) pushSep() bool { return pb.push(pb.sep) }

// pushSegment appends a whole segment that is already canonical.
func (pb *pathBuilder) pushSegment(seg string) bool {
	if len(pb.buf)+1+len(seg) > maxPath {
		return false
	}
	pb.buf = append(pb.buf, pb.sep)
	pb.buf = append(pb.buf, seg...)
	return true
}

// popSegment removes the last segment together with its leading separator.
// It fails when the buffer is already at the drive root.
func (pb *pathBuilder) popSegment() bool {
	for {
		n := len(pb.buf) - 1
		if n < 0 {
			return false
		}
		c := pb.buf[n]
		pb.buf = pb.buf[:n]
		if c == '\\' {
			return true
		}
		if n <= pb.root {
			return false
		}
	}
}

// pushName copies one segment from s up to the next separator. Trailing dots
// and spaces are dropped except that one dot is kept after a '*'. It returns
// how many bytes of s were consumed, not including the separator on success.
func (pb *pathBuilder) pushName(s string) (n int, flags uint8, ok bool) {
	start := len(pb.buf)
	for n = 0; n < len(s) && !isSep(s[n]); n++ {
		c := s[n]
		switch c {
		case '*':
			flags |= pnWildcardStar | pnWildcard
		case '?':
			flags |= pnWildcard
		}
		if !pb.push(c) {
			return n + 1, flags, false
		}
	}
	end := len(pb.buf)
	for end > start && (pb.buf[end-1] == '.' || pb.buf[end-1] == ' ') {
		end--
	}
	if end == start {
		return n + 1, flags, false
	}
	if end < len(pb.buf) && pb.buf[end] == '.' && flags&pnWildcardStar != 0 {
		end++
	}
	pb.buf = pb.buf[:end]
	return n, flags, true
}

func (pb *pathBuilder) String() string { return string(pb.buf) }

// segmentErr picks between FileNotFound and PathNotFound depending on
// whether more path follows the point of failure.
func segmentErr(rest string) Errno {
	if strings.ContainsAny(rest, `/\`) {
		return PathNotFound
	}
	return FileNotFound
}

var dosDevices = []string{"NUL", "CON", "AUX", "PRN", "CLOCK$"}

// isDevice reports whether the last path component names a DOS device,
// with or without an extension.
func isDevice(name string) bool {
	base, _, _ := strings.Cut(strings.ToUpper(name), ".")
	for _, dev := range dosDevices {
		if base == dev {
			return true
		}
	}
	if len(base) == 4 && (strings.HasPrefix(base, "COM") || strings.HasPrefix(base, "LPT")) {
		return '1' <= base[3] && base[3] <= '9'
	}
	return false
}

// isDevicePath reports whether a canonical path resolved to a device.
func isDevicePath(canonical string) bool {
	return len(canonical) > 2 && canonical[2] == '/'
}

// lastComponentIndex returns the index just past the last '/', '\' or ':'.
func lastComponentIndex(s string) int {
	return strings.LastIndexAny(s, `/\:`) + 1
}

// truename canonicalizes a guest path against the drive table. On success
// the result has the form "X:\A\B", keeps a trailing separator the input
// had, is "X:\" for a drive root and "X:/NAME" for a device. A leading "\\"
// marks a UNC path which is returned verbatim. drive is reported whenever it
// could be determined, including on DriveInvalid.
func (r *Redirector) truename(src string, allowWildcards bool) (dst string, drive int, err error) {
	drive = -1
	if src == "" {
		return "", drive, FileNotFound
	}
	if strings.HasPrefix(src, `\\`) {
		if len(src) >= maxPath {
			return "", drive, PathNotFound
		}
		return src, drive, nil
	}

	rest := src
	if len(src) >= 2 && src[1] == ':' {
		drive = int(r.codec.Upper(src[0])) - 'A'
		rest = src[2:]
	} else {
		drive = r.drives.CurrentDrive()
	}
	if drive < 0 || drive >= maxDrives || drive >= r.drives.LastDrive() {
		return "", drive, DriveInvalid
	}
	if _, ok := r.hostRoot(drive); !ok {
		return "", drive, DriveInvalid
	}

	pb := newPathBuilder(drive)
	if i := lastComponentIndex(rest); isDevice(rest[i:]) {
		switch {
		case i == 0:
			pb.sep = '/'
		case i == 1 && rest[0] == '/':
			// Already resolved device, "X:/NAME".
			pb.sep = '/'
			rest = rest[i:]
		case i == 5 && strings.ReplaceAll(r.codec.FoldUpper(rest[:5]), "/", `\`) == `\DEV\`:
			pb.sep = '/'
			rest = rest[i:]
		}
	}
	if pb.sep != '/' {
		if len(rest) > 0 && isSep(rest[0]) {
			rest = rest[1:] // Only the absolute path marker.
		} else if cwd := strings.Trim(r.drives.CurrentDirectory(drive), `\/`); cwd != "" {
			for _, seg := range strings.FieldsFunc(cwd, func(c rune) bool { return isSep(c) }) {
				if !pb.pushSegment(seg) {
					return "", drive, segmentErr(rest)
				}
			}
		}
	}

	var (
		addSep = sepAdd
		wild   = false
		i      = 0
	)
	for i < len(rest) {
		// Wildcards are only legal in the last segment.
		if wild {
			return "", drive, PathNotFound
		}
		c := rest[i]
		i++
		if isSep(c) {
			addSep = sepAdd
			continue
		}
		if c == '.' {
			if i == len(rest) || isSep(rest[i]) {
				addSep = sepUnlessLast
				continue
			}
			popped := false
			for i < len(rest) && rest[i] == '.' &&
				(i+1 == len(rest) || isSep(rest[i+1]) || rest[i+1] == '.') {
				if !pb.popSegment() {
					return "", drive, PathNotFound
				}
				popped = true
				i++
			}
			// A name after the dots keeps the last two of them.
			if popped && (i == len(rest) || rest[i] != '.') {
				addSep = sepUnlessLast
				continue
			}
		}
		i-- // Segment starts at c.
		if addSep != sepNone {
			if !pb.pushSep() {
				return "", drive, segmentErr(rest[i:])
			}
			addSep = sepNone
		}
		n, flags, ok := pb.pushName(rest[i:])
		i += n
		if !ok {
			if i > len(rest) {
				i = len(rest)
			}
			return "", drive, segmentErr(rest[i:])
		}
		wild = wild || flags&pnWildcard != 0
	}
	if wild && !allowWildcards {
		return "", drive, PathNotFound
	}
	if addSep == sepAdd || len(pb.buf) == 2 {
		if !pb.push('\\') {
			return "", drive, FileNotFound
		}
	}
	dst = pb.String()
	// A walk that ends in \DEV\ names the device.
	if pb.sep == '\\' && len(dst) > 7 && r.codec.FoldUpper(dst[2:7]) == `\DEV\` {
		if name := dst[7:]; strings.IndexByte(name, '\\') < 0 && isDevice(name) {
			dst = dst[:2] + "/" + name
		}
	}
	return dst, drive, nil
}

// buildTruename is truename as seen by the operations: UNC paths and drives
// without a redirection root are not handled here.
func (r *Redirector) buildTruename(src string, allowWildcards bool) (string, int, error) {
	dst, drive, err := r.truename(src, allowWildcards)
	if errors.Is(err, DriveInvalid) {
		if _, ok := r.hostRoot(drive); !ok {
			return "", drive, ErrNotHandled
		}
	}
	if err != nil {
		return "", drive, err
	}
	if strings.HasPrefix(src, `\\`) {
		return "", drive, ErrNotHandled
	}
	return dst, drive, nil
}

// buildHostPath resolves src and maps it to the host.
func (r *Redirector) buildHostPath(src string, allowWildcards bool) (canonical, host string, drive int, err error) {
	canonical, drive, err = r.buildTruename(src, allowWildcards)
	if err != nil {
		return "", "", drive, err
	}
	return canonical, r.ToHost(canonical, drive), drive, nil
}
