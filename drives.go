package mfs

import (
	"strings"

	"github.com/pkg/errors"
)

// Drive is one redirected drive of a DriveMap.
type Drive struct {
	// Root is the host directory the drive is redirected to.
	Root     string
	ReadOnly bool
	Label    string
	// Cwd is the current directory below the root in short form, without the
	// drive prefix or leading separator.
	Cwd string
}

// DriveMap is an in-memory DriveTable.
type DriveMap struct {
	drives  [maxDrives]*Drive
	current int
	last    int
}

var _ DriveTable = (*DriveMap)(nil)

// NewDriveMap returns an empty drive map with C: current and Z: as the last
// drive.
func NewDriveMap() *DriveMap {
	return &DriveMap{current: 2, last: maxDrives}
}

// DriveIndex converts a drive letter to its number, 0 for A:.
func DriveIndex(letter byte) (int, error) {
	if 'a' <= letter && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	if letter < 'A' || letter > 'Z' {
		return 0, errors.Errorf("mfs: invalid drive letter %q", letter)
	}
	return int(letter - 'A'), nil
}

// Mount redirects the drive with the given letter.
func (m *DriveMap) Mount(letter byte, d Drive) error {
	idx, err := DriveIndex(letter)
	if err != nil {
		return err
	}
	if d.Root == "" {
		return errors.Errorf("mfs: drive %c: empty root", 'A'+idx)
	}
	d.Cwd = strings.Trim(d.Cwd, `\/`)
	m.drives[idx] = &d
	return nil
}

// Unmount removes the redirection of a drive.
func (m *DriveMap) Unmount(letter byte) {
	if idx, err := DriveIndex(letter); err == nil {
		m.drives[idx] = nil
	}
}

// SetCurrentDrive selects the current drive, 0 for A:.
func (m *DriveMap) SetCurrentDrive(drive int) error {
	if drive < 0 || drive >= m.last {
		return errors.Errorf("mfs: drive %d beyond last drive", drive)
	}
	m.current = drive
	return nil
}

// SetLastDrive sets the number of drive letters the guest may use.
func (m *DriveMap) SetLastDrive(n int) error {
	if n < 1 || n > maxDrives {
		return errors.Errorf("mfs: last drive %d out of range", n)
	}
	m.last = n
	return nil
}

func (m *DriveMap) get(drive int) *Drive {
	if drive < 0 || drive >= maxDrives {
		return nil
	}
	return m.drives[drive]
}

func (m *DriveMap) RedirectionRoot(drive int) (string, bool) {
	d := m.get(drive)
	if d == nil {
		return "", false
	}
	return d.Root, true
}

func (m *DriveMap) ReadOnly(drive int) bool {
	d := m.get(drive)
	return d != nil && d.ReadOnly
}

func (m *DriveMap) CurrentDirectory(drive int) string {
	if d := m.get(drive); d != nil {
		return d.Cwd
	}
	return ""
}

func (m *DriveMap) SetCurrentDirectory(drive int, dir string) {
	if d := m.get(drive); d != nil {
		d.Cwd = strings.Trim(dir, `\/`)
	}
}

func (m *DriveMap) CurrentDrive() int { return m.current }

func (m *DriveMap) LastDrive() int { return m.last }

// VolumeLabel returns the drive's label, or the upper case base name of its
// root when none was set.
func (m *DriveMap) VolumeLabel(drive int) string {
	d := m.get(drive)
	if d == nil {
		return ""
	}
	if d.Label != "" {
		return d.Label
	}
	root := strings.TrimRight(d.Root, "/")
	label := strings.ToUpper(root[strings.LastIndexByte(root, '/')+1:])
	if len(label) > 11 {
		label = label[:11]
	}
	return label
}
