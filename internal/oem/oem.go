// Package oem implements the single byte OEM code pages guest programs see
// file names in, along with their case folding tables.
package oem

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Default is the code page used when none is configured.
const Default = 437

// Replacement is written in place of runes a code page cannot represent.
const Replacement = '_'

var tables = map[int]*charmap.Charmap{
	437: charmap.CodePage437,
	850: charmap.CodePage850,
	852: charmap.CodePage852,
	855: charmap.CodePage855,
	858: charmap.CodePage858,
	860: charmap.CodePage860,
	862: charmap.CodePage862,
	863: charmap.CodePage863,
	865: charmap.CodePage865,
	866: charmap.CodePage866,
}

// CodePage converts file names between host UTF-8 and a DOS code page and
// folds OEM bytes to upper case. A CodePage is immutable and safe for
// concurrent use.
type CodePage struct {
	id    int
	cm    *charmap.Charmap
	upper [256]byte
}

// Lookup returns the code page with the given number.
func Lookup(id int) (*CodePage, error) {
	cm, ok := tables[id]
	if !ok {
		return nil, errors.Errorf("oem: unsupported code page %d", id)
	}
	cp := &CodePage{id: id, cm: cm}
	for i := range cp.upper {
		b := byte(i)
		cp.upper[i] = b
		if b < utf8.RuneSelf {
			if 'a' <= b && b <= 'z' {
				cp.upper[i] = b - 'a' + 'A'
			}
			continue
		}
		r := cm.DecodeByte(b)
		u := unicode.ToUpper(r)
		if u == r {
			continue
		}
		if ub, ok := cm.EncodeRune(u); ok {
			cp.upper[i] = ub
		}
	}
	return cp, nil
}

// MustLookup is like Lookup but panics on an unknown code page.
func MustLookup(id int) *CodePage {
	cp, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return cp
}

// ID returns the code page number.
func (cp *CodePage) ID() int { return cp.id }

func (cp *CodePage) String() string { return "CP" + strconv.Itoa(cp.id) }

// Upper folds a single OEM byte to upper case.
func (cp *CodePage) Upper(c byte) byte { return cp.upper[c] }

// Encode converts a host UTF-8 name to OEM bytes. The name is NFC normalized
// first so decomposed host names fold like their composed forms. Runes the
// code page cannot represent are replaced and ok is false.
func (cp *CodePage) Encode(s string) (_ string, ok bool) {
	s = norm.NFC.String(s)
	ok = true
	dst := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == utf8.RuneError:
			ok = false
			dst = append(dst, Replacement)
		case r < utf8.RuneSelf:
			dst = append(dst, byte(r))
		default:
			b, valid := cp.cm.EncodeRune(r)
			if !valid {
				ok = false
				b = Replacement
			}
			dst = append(dst, b)
		}
	}
	return string(dst), ok
}

// Decode converts OEM bytes to a host UTF-8 name.
func (cp *CodePage) Decode(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	dst := make([]byte, 0, len(s)+len(s)/2)
	for i := 0; i < len(s); i++ {
		if s[i] < utf8.RuneSelf {
			dst = append(dst, s[i])
			continue
		}
		dst = utf8.AppendRune(dst, cp.cm.DecodeByte(s[i]))
	}
	return string(dst)
}
