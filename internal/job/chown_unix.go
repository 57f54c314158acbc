//go:build unix

package job

import "os"

func chown(path string, uid, gid int) error {
	return os.Chown(path, uid, gid)
}
