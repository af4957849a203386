package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/giantswarm/dbenv/internal/errdefs"
)

// ErrEmptyPath is returned when a destination path is empty.
const ErrEmptyPath = errdefs.Error("path must not be empty")

// WriteOptions configures WriteFile.
type WriteOptions struct {
	Mode   os.FileMode // Permissions of the written file; 0 means 0644.
	Atomic bool        // Write to a temp file in the same directory, then rename.
}

// WriteFile writes data to dst, creating parent directories as needed.
//
// With opts.Atomic the data is synced to a temp file that is then renamed
// over dst, so a container runtime reading dst never sees a partial file.
// A nil opts writes in place with mode 0644.
func WriteFile(dst string, data []byte, opts *WriteOptions) (retErr error) {
	if dst == "" {
		return ErrEmptyPath
	}

	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	mode := o.Mode
	if mode == 0 {
		mode = 0o644
	}

	if err := EnsureDirForFile(dst); err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}

	f, writePath, err := openForWrite(dst, mode, o.Atomic)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(writePath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", writePath, err)
	}

	if o.Atomic {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return fmt.Errorf("sync %s: %w", writePath, err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", writePath, err)
	}

	if writePath != dst {
		if err := os.Rename(writePath, dst); err != nil {
			return fmt.Errorf("rename temp file to destination: %w", err)
		}
	}
	return nil
}

func openForWrite(dst string, mode os.FileMode, atomic bool) (*os.File, string, error) {
	if atomic {
		tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-write-*")
		if err != nil {
			return nil, "", fmt.Errorf("create temp file: %w", err)
		}
		if err := tmp.Chmod(mode); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return nil, "", fmt.Errorf("chmod temp file: %w", err)
		}
		return tmp, tmp.Name(), nil
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode) //nolint:gosec // G304: paths are built by the template processor
	if err != nil {
		return nil, "", fmt.Errorf("create destination: %w", err)
	}
	return f, dst, nil
}
