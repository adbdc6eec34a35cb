//go:build windows

package discovery

import "os"

// inodeOf has no portable device+inode equivalent on Windows; symlink-cycle
// detection is skipped there rather than guessing at a volume serial number
// scheme (spec §4.1 names device+inode specifically).
func inodeOf(fi os.FileInfo) (inode, bool) {
	return inode{}, false
}
