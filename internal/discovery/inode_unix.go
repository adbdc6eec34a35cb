//go:build !windows

package discovery

import (
	"os"
	"syscall"
)

// inodeOf extracts the (device, inode) pair used for symlink-cycle
// detection (spec §4.1, §C.1), grounded on the original's file_walker.rs
// visited-inode handling.
func inodeOf(fi os.FileInfo) (inode, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return inode{}, false
	}
	return inode{dev: uint64(st.Dev), ino: st.Ino}, true
}
