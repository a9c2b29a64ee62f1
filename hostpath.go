package mfs

import (
	"io"
	"strings"
)

// ToHost maps a canonical guest path on drive to a host path below the
// drive's redirection root. Guest separators become slashes and names are
// converted from OEM to host encoding.
func (r *Redirector) ToHost(canonical string, drive int) string {
	root, _ := r.hostRoot(drive)
	rel := ""
	if len(canonical) > 3 {
		rel = canonical[3:]
	}
	rel = strings.ReplaceAll(r.codec.ToHost(rel), `\`, "/")
	return root + rel
}

// ToGuest maps a host path below drive's root back to a guest path. Each
// segment is looked up in its host directory by long or short name and
// reported in short form if short is set, or long form otherwise. Segments
// with no matching entry are converted, and mangled when short is set or
// they have no OEM form. Paths outside the root map to the root.
func (r *Redirector) ToGuest(host string, drive int, short bool) string {
	out := string(rune('A'+drive)) + `:\`
	root, ok := r.hostRoot(drive)
	if !ok || !strings.HasPrefix(host+"/", root) || len(host) <= len(root) {
		return out
	}
	dir := strings.TrimSuffix(root, "/")
	segs := strings.Split(strings.TrimPrefix(host[len(root)-1:], "/"), "/")
	names := make([]string, 0, len(segs))
	for _, seg := range segs {
		if seg == "" {
			break
		}
		var name string
		switch {
		case seg == "." || seg == "..":
			name = seg
		default:
			if np, found := r.searchDir(dir, seg); found {
				if short {
					name = r.codec.FoldUpper(np.ShortName)
				} else {
					name = r.codec.guestName(np.LongName, false)
				}
			} else {
				name = r.codec.guestName(seg, short)
			}
		}
		names = append(names, name)
		dir += "/" + seg
	}
	return out + strings.Join(names, `\`)
}

// searchDir scans the host directory dir for an entry whose long or short
// name equals name ignoring case. The pseudo entries "." and ".." never match.
func (r *Redirector) searchDir(dir, name string) (NamePair, bool) {
	if dir == "" {
		dir = "/"
	}
	ds, err := r.host.OpenDir(dir)
	if err != nil {
		return NamePair{}, false
	}
	defer ds.Close()
	oemName, _ := r.codec.FromHost(name)
	for {
		np, err := ds.ReadEntry()
		if err != nil {
			if err != io.EOF {
				r.debug("mfs:searchdir", slogErr(err))
			}
			return NamePair{}, false
		}
		if np.LongName == "." || np.LongName == ".." {
			continue
		}
		if r.codec.sameHostName(np.LongName, name) || r.codec.EqualFold(np.ShortName, oemName) {
			return np, true
		}
	}
}

// findFile resolves host, possibly spelled with the wrong case or with short
// names, to the path of an existing entry below drive's root. A missing last
// segment is FileNotFound, a missing directory on the way PathNotFound.
func (r *Redirector) findFile(host string, drive int) (string, HostStat, error) {
	root, ok := r.hostRoot(drive)
	if !ok {
		return "", HostStat{}, PathNotFound
	}
	resolved := strings.TrimSuffix(root, "/")
	var segs []string
	if strings.HasPrefix(host+"/", root) {
		for _, seg := range strings.Split(strings.TrimPrefix(host[len(root)-1:], "/"), "/") {
			if seg != "" {
				segs = append(segs, seg)
			}
		}
	}
	for i, seg := range segs {
		last := i == len(segs)-1
		notFound := PathNotFound
		if last {
			notFound = FileNotFound
		}
		if seg == "." || seg == ".." {
			return "", HostStat{}, notFound
		}
		if _, err := r.host.Stat(resolved + "/" + seg); err == nil {
			resolved += "/" + seg
			continue
		}
		np, found := r.searchDir(resolved, seg)
		if !found {
			return "", HostStat{}, notFound
		}
		resolved += "/" + np.LongName
	}
	if resolved == "" {
		resolved = "/"
	}
	st, err := r.host.Stat(resolved)
	if err != nil {
		if len(segs) == 0 {
			return "", HostStat{}, PathNotFound
		}
		return "", HostStat{}, FileNotFound
	}
	return resolved, st, nil
}

// splitHost splits a host path at its last slash into directory and name.
func splitHost(host string) (dir, name string) {
	i := strings.LastIndexByte(host, '/')
	if i < 0 {
		return "", host
	}
	dir, name = host[:i], host[i+1:]
	if dir == "" {
		dir = "/"
	}
	return dir, name
}
