package mfs

import "strings"

// Match reports whether name matches the DOS wildcard pattern. '*' matches
// any run of characters and '?' exactly one, or none at the end of the name
// or in front of the extension dot. A name without a dot is matched as if it
// ended in one so that "*.*" and "*." behave as in DOS, and a final lone dot
// in the name may remain unmatched. Bytes are compared after folding with
// upper, which may be nil for exact comparison.
//
// Matching uses two rows of a table over the name, so its cost is bounded
// by len(pattern)*len(name) regardless of how many stars the pattern holds.
func Match(pattern, name string, upper func(byte) byte) bool {
	if upper == nil {
		upper = func(c byte) byte { return c }
	}
	if strings.IndexByte(name, '.') < 0 {
		name += "."
	}
	n := len(name)
	// next[j] reports whether pattern[i+1:] matches name[j:], cur[j] the
	// same for pattern[i:].
	next := make([]bool, n+1)
	cur := make([]bool, n+1)
	next[n] = true
	if name[n-1] == '.' {
		next[n-1] = true
	}
	for i := len(pattern) - 1; i >= 0; i-- {
		pc := pattern[i]
		switch pc {
		case '*':
			cur[n] = next[n]
			for j := n - 1; j >= 0; j-- {
				cur[j] = next[j] || cur[j+1]
			}
		case '?':
			cur[n] = next[n]
			for j := n - 1; j >= 0; j-- {
				cur[j] = next[j+1] || (name[j] == '.' && next[j])
			}
		default:
			pc = upper(pc)
			cur[n] = false
			for j := n - 1; j >= 0; j-- {
				cur[j] = next[j+1] && upper(name[j]) == pc
			}
		}
		cur, next = next, cur
	}
	return next[0]
}

// Match is the package level Match folding with c's code page.
func (c *Codec) Match(pattern, name string) bool {
	return Match(pattern, name, c.cp.Upper)
}

// MatchPair reports whether pattern matches either identity of np. The long
// name is converted to OEM first, and mangled if it has no OEM form.
func (c *Codec) MatchPair(pattern string, np NamePair) bool {
	long, ok := c.FromHost(np.LongName)
	if !ok {
		long = c.FoldUpper(c.Mangle(long))
	}
	return c.Match(pattern, long) || c.Match(pattern, c.Mangle(np.ShortName))
}
