// Package dostime converts between host time, packed DOS date/time words
// and Windows FILETIME values.
package dostime

import "time"

// filetimeEpoch is the number of seconds between 1601-01-01 and 1970-01-01.
const filetimeEpoch = (369*365 + 89) * 86400

// DateTime is a packed DOS timestamp with 2 second resolution. Fine carries
// the centiseconds that the 2 second field cannot, as stored in FAT
// creation times.
type DateTime struct {
	Time uint16
	Date uint16
	Fine uint8
}

// FromTime packs t as seen in loc. Times outside the DOS range of 1980 to
// 2107 are clamped. A nil loc means time.Local.
func FromTime(t time.Time, loc *time.Location) DateTime {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	if y := t.Year(); y < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, loc)
	} else if y > 2107 {
		t = time.Date(2107, 12, 31, 23, 59, 58, 0, loc)
	}
	hour, min, sec := t.Clock()
	return DateTime{
		Time: uint16(hour<<11 | min<<5 | sec/2),
		Date: uint16(t.Year()-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day()),
		Fine: uint8(t.Nanosecond()/1e7) + 100*uint8(sec%2),
	}
}

// Milliseconds returns the sub-second part carried by Fine.
func (dt DateTime) Milliseconds() int {
	if dt.Fine >= 100 {
		return 10 * int(dt.Fine-100)
	}
	return 10 * int(dt.Fine)
}

func (dt DateTime) YMD() (year int, month time.Month, day int) {
	year = 1980 + int(dt.Date>>9)
	month = time.Month((dt.Date >> 5) & 0xf)
	day = int(dt.Date & 0x1f)
	return year, month, day
}

func (dt DateTime) Clock() (hour, min, sec int) {
	hour = int(dt.Time >> 11)
	min = int((dt.Time >> 5) & 0x3f)
	sec = 2 * int(dt.Time&0x1f)
	if dt.Fine >= 100 {
		sec++
	}
	return hour, min, sec
}

// In returns the wall time dt represents in loc. A nil loc means time.Local.
func (dt DateTime) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	hour, min, sec := dt.Clock()
	year, month, day := dt.YMD()
	return time.Date(year, month, day, hour, min, sec, 1e6*dt.Milliseconds(), loc)
}

// Pack is a shorthand for FromTime returning only the date and time words.
func Pack(t time.Time, loc *time.Location) (date, tm uint16) {
	dt := FromTime(t, loc)
	return dt.Date, dt.Time
}

// Unpack is the inverse of Pack.
func Unpack(date, tm uint16, loc *time.Location) time.Time {
	return DateTime{Date: date, Time: tm}.In(loc)
}

// ToFileTime returns t as 100 nanosecond intervals since 1601-01-01 UTC.
func ToFileTime(t time.Time) uint64 {
	return uint64(t.Unix()+filetimeEpoch)*1e7 + uint64(t.Nanosecond()/100)
}

// FromFileTime is the inverse of ToFileTime.
func FromFileTime(ft uint64) time.Time {
	sec := int64(ft/1e7) - filetimeEpoch
	nsec := int64(ft%1e7) * 100
	return time.Unix(sec, nsec)
}
