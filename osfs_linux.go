package mfs

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func statHost(path string) (HostStat, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return HostStat{}, errors.Wrap(err, "stat")
	}
	st := hostStat(fi)
	var sys unix.Stat_t
	if err := unix.Stat(path, &sys); err == nil {
		st.AccessTime = time.Unix(sys.Atim.Unix())
		st.ChangeTime = time.Unix(sys.Ctim.Unix())
	}
	return st, nil
}

func rmdirHost(path string) error {
	if err := unix.Rmdir(path); err != nil {
		return &os.PathError{Op: "rmdir", Path: path, Err: err}
	}
	return nil
}

func unlinkHost(path string) error {
	if err := unix.Unlink(path); err != nil {
		return &os.PathError{Op: "unlink", Path: path, Err: err}
	}
	return nil
}

// AccessGate is a PrivilegeGate that asks the kernel whether the process
// may read or write a host path. Paths that do not exist yet are checked
// against their parent directory.
type AccessGate struct{}

func (AccessGate) Allow(hostPath string, write bool) bool {
	mode := uint32(unix.R_OK)
	if write {
		mode = unix.W_OK
	}
	for p := hostPath; ; {
		err := unix.Access(p, mode)
		if err == nil {
			return true
		}
		if err != unix.ENOENT {
			return false
		}
		dir, _ := splitHost(p)
		if dir == p || dir == "" {
			return false
		}
		p = dir
	}
}
