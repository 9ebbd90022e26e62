// Package artifact manages the transient file holding the last computed
// code hash.
package artifact

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a store writing to path on fs. An empty path disables the
// artifact and turns every operation into a no-op.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{
		fs:   fs,
		path: path,
	}
}

func (s *Store) Enabled() bool {
	return s.path != ""
}

func (s *Store) Path() string {
	return s.path
}

// Write replaces the artifact with digest followed by a newline. The content
// goes to a temp file in the same directory which is then renamed over the
// target, so readers see either the old file or the complete new one.
func (s *Store) Write(digest string) error {
	if !s.Enabled() {
		return nil
	}
	dir := filepath.Dir(s.path)

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "error creating artifact temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = s.fs.Remove(tmpName)
	}

	if _, err := tmp.WriteString(digest + "\n"); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrap(err, "error writing artifact")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrap(err, "error syncing artifact")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrap(err, "error closing artifact")
	}
	if err := s.fs.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return errors.Wrap(err, "error setting artifact permissions")
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return errors.Wrap(err, "error replacing artifact")
	}
	return nil
}

// Read returns the digest stored in the artifact without the trailing newline.
func (s *Store) Read() (string, error) {
	if !s.Enabled() {
		return "", errors.New("artifact is disabled")
	}
	contents, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return "", errors.Wrap(err, "error reading artifact")
	}
	return strings.TrimSpace(string(contents)), nil
}

// Clear removes the artifact. A missing artifact is not an error.
func (s *Store) Clear() error {
	if !s.Enabled() {
		return nil
	}
	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "error removing stale artifact")
	}
	return nil
}
