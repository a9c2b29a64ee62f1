package mfs

import (
	"strings"
	"testing"
)

func TestMatch(t *testing.T) {
	c := testCodec(t)
	tests := []struct {
		pattern, name string
		want          bool
	}{
		{"*", "ANYTHING.EXT", true},
		{"*", "NOEXT", true},
		{"*.*", "README", true},
		{"*.*", "README.TXT", true},
		{"*.", "README", true},
		{"*.", "README.TXT", false},
		{"*.TXT", "readme.txt", true},
		{"*.TXT", "README.DOC", false},
		{"*.T*", "LongFileName.Txt", true},
		{"*.T*", "LONGFI~1.TXT", true},
		{"*.BAK", "A.BAK", true},
		{"*.BAK", "A.BAKE", false},
		{"?", "A", true},
		{"?", "AB", false},
		{"A?.TXT", "A.TXT", true},
		{"A?.TXT", "AB.TXT", true},
		{"A?.TXT", "ABC.TXT", false},
		{"????????.???", "FOO.C", true},
		{"FOO", "FOO.", true},
		{"FOO.", "FOO", true},
		{"FOO", "FOOD", false},
		{"README.TXT", "readme.txt", true},
		{"*A*B", "XAYB", true},
		{"*A*B", "XAYBZ", false},
		{"", "A", false},
	}
	for _, tt := range tests {
		got := c.Match(tt.pattern, tt.name)
		if got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}

func TestMatchExact(t *testing.T) {
	if Match("README.TXT", "readme.txt", nil) {
		t.Error("exact match folded case")
	}
	if !Match("readme.*", "readme.txt", nil) {
		t.Error("exact match failed")
	}
}

func TestMatchManyStars(t *testing.T) {
	pattern := strings.Repeat("*A", 40) + "*B"
	name := strings.Repeat("A", 200)
	if Match(pattern, name, nil) {
		t.Fatal("unexpected match")
	}
	if !Match(pattern, name+"B", nil) {
		t.Fatal("expected match")
	}
}

// Every short name produced for a host name must find that entry again.
func TestMatchPairDuality(t *testing.T) {
	c := testCodec(t)
	for _, host := range []string{"LongFileName.Txt", "README.TXT", "a b.c", "日本語.txt", "archive.tar.gz", ".hidden"} {
		np := NamePair{ShortName: c.ShortName(host), LongName: host}
		if !c.MatchPair(np.ShortName, np) {
			t.Errorf("short name %q does not match its entry %q", np.ShortName, host)
		}
		if oem, ok := c.FromHost(host); ok && !c.MatchPair(oem, np) {
			t.Errorf("long name %q does not match itself", host)
		}
		if !c.MatchPair("*", np) || !c.MatchPair("*.*", np) {
			t.Errorf("%q escapes match-all", host)
		}
	}
}
