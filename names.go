package mfs

import (
	"strings"

	"github.com/soypat/mfs/internal/oem"
)

// Codec converts and compares file names in the guest's OEM code page.
// It is stateless after construction and safe for concurrent use.
type Codec struct {
	cp *oem.CodePage
}

// NewCodec returns a Codec for the given code page, 437 when zero.
func NewCodec(codepage int) (*Codec, error) {
	if codepage == 0 {
		codepage = oem.Default
	}
	cp, err := oem.Lookup(codepage)
	if err != nil {
		return nil, err
	}
	return &Codec{cp: cp}, nil
}

// CodePage returns the code page number.
func (c *Codec) CodePage() int { return c.cp.ID() }

// Upper folds one OEM byte to upper case.
func (c *Codec) Upper(b byte) byte { return c.cp.Upper(b) }

// FoldUpper upper-cases every byte of s in the OEM code page.
func (c *Codec) FoldUpper(s string) string { return c.FoldUpperN(s, len(s)) }

// FoldUpperN upper-cases the first n bytes of s, leaving the rest as is.
func (c *Codec) FoldUpperN(s string, n int) string {
	if n > len(s) {
		n = len(s)
	}
	var buf []byte
	for i := 0; i < n; i++ {
		u := c.cp.Upper(s[i])
		if u == s[i] {
			continue
		}
		if buf == nil {
			buf = []byte(s)
		}
		buf[i] = u
	}
	if buf == nil {
		return s
	}
	return string(buf)
}

// FromHost converts a host name to OEM bytes. ok is false if some rune had
// no OEM representation, in which case it was replaced.
func (c *Codec) FromHost(name string) (_ string, ok bool) { return c.cp.Encode(name) }

// ToHost converts OEM bytes to a host name.
func (c *Codec) ToHost(name string) string { return c.cp.Decode(name) }

// EqualFold reports whether two OEM names are equal ignoring case.
func (c *Codec) EqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if c.cp.Upper(a[i]) != c.cp.Upper(b[i]) {
			return false
		}
	}
	return true
}

// sameHostName compares two host names the way guest lookups do.
func (c *Codec) sameHostName(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	oa, ok := c.FromHost(a)
	if !ok {
		return false
	}
	ob, ok := c.FromHost(b)
	return ok && c.EqualFold(oa, ob)
}

// ValidChar reports whether c may appear in a DOS file name.
func ValidChar(c byte) bool {
	switch {
	case c >= 0x80:
		return true
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'()-@^_`{}~", c) >= 0
}

// IsShortForm reports whether name is already a valid upper case 8.3 name
// that needs no distinct long form.
func (c *Codec) IsShortForm(name string) bool {
	return validShort(name) && c.FoldUpper(name) == name
}

func validShort(name string) bool {
	if name == "." || name == ".." {
		return true
	}
	body, ext, hasdot := strings.Cut(name, ".")
	if len(body) == 0 || len(body) > 8 || len(ext) > 3 || (hasdot && len(ext) == 0) {
		return false
	}
	for i := 0; i < len(body); i++ {
		if !ValidChar(body[i]) {
			return false
		}
	}
	for i := 0; i < len(ext); i++ {
		if !ValidChar(ext[i]) {
			return false
		}
	}
	return true
}

// Mangle derives the 8.3 short name of an OEM name. Names that already
// satisfy 8.3 syntax are only upper-cased. Otherwise leading dots and
// embedded spaces and dots are dropped, invalid characters become '_', the
// extension is taken after the last dot and cut to 3 characters, and a lossy
// body is cut to 6 characters followed by "~1". Mangle never fails.
func (c *Codec) Mangle(name string) string {
	if validShort(name) {
		return c.FoldUpper(name)
	}
	s := strings.TrimLeft(name, ". ")
	lost := len(s) != len(name)
	body, ext := s, ""
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		body, ext = s[:i], s[i+1:]
	}
	b := c.shortPart(body, &lost)
	e := c.shortPart(ext, &lost)
	if len(e) > 3 {
		e = e[:3]
		lost = true
	}
	if len(b) == 0 {
		b = "_"
		lost = true
	}
	if len(b) > 8 || lost {
		if len(b) > 6 {
			b = b[:6]
		}
		b += "~1"
	}
	if e == "" {
		return b
	}
	return b + "." + e
}

func (c *Codec) shortPart(s string, lost *bool) string {
	dst := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == ' ' || ch == '.':
			*lost = true
			continue
		case !ValidChar(ch):
			*lost = true
			ch = '_'
		}
		dst = append(dst, c.cp.Upper(ch))
	}
	return string(dst)
}

// ShortName returns the upper case 8.3 name of a host name.
func (c *Codec) ShortName(hostName string) string {
	name, _ := c.FromHost(hostName)
	return c.FoldUpper(c.Mangle(name))
}

// guestName returns the OEM name shown for a host name, mangling it when it
// has no OEM form or when short is set.
func (c *Codec) guestName(hostName string, short bool) string {
	name, ok := c.FromHost(hostName)
	if !ok || short {
		return c.FoldUpper(c.Mangle(name))
	}
	return name
}

// FCBName returns name as the blank padded 11 byte form of a file control block.
func FCBName(name string) [11]byte {
	var fcb [11]byte
	for i := range fcb {
		fcb[i] = ' '
	}
	if name == "." || name == ".." {
		copy(fcb[:], name)
		return fcb
	}
	body, ext, _ := strings.Cut(name, ".")
	copy(fcb[:8], body)
	copy(fcb[8:], ext)
	return fcb
}
