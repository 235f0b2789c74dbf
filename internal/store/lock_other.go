//go:build !unix

package store

import "os"

// lockDir only ensures dir exists on platforms without flock; writers in
// separate processes are not serialized there.
func lockDir(dir, _ string, _ bool) (unlock func() error, err error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return func() error { return nil }, nil
}
