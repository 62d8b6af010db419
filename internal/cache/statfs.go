package cache

import "golang.org/x/sys/unix"

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	frsize := uint64(stat.Frsize)
	if frsize == 0 {
		frsize = uint64(stat.Bsize)
	}
	total := stat.Blocks * frsize
	used := (stat.Blocks - stat.Bfree) * frsize
	return total, used, nil
}
