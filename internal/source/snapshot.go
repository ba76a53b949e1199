package source

import (
	"fmt"
	"io"
	"os"
)

// withSnapshot copies the store at path to a scratch file and invokes fn on
// the copy. The owning browser may hold the original open with locking the
// sqlite driver cannot negotiate, so reads never touch it directly. The
// copy is removed on every path out of this function, errors included.
func withSnapshot(path string, fn func(snapshotPath string) error) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "visitwatch-snapshot-*.sqlite")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	snapshotPath := tmp.Name()
	defer os.Remove(snapshotPath)

	_, err = io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("copy store: %w", err)
	}
	return fn(snapshotPath)
}
