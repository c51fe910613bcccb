package covers

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Store persists downloaded cover images on disk. Filenames are derived from
// the book's external catalog id, so concurrent writes for the same book
// converge on the same final file.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Init creates the cover directory and verifies it's writable.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create cover directory: %s", s.dir)
	}

	testFile := filepath.Join(s.dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return errors.Wrapf(err, "cover directory is not writable: %s", s.dir)
	}
	f.Close()

	if err := os.Remove(testFile); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", testFile)
	}

	return nil
}

// Save writes the image for the given external id and returns the filename it
// was stored under. An existing cover for the same id is overwritten. The file
// extension is sniffed from the content.
func (s *Store) Save(externalID string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", errors.WithStack(err)
	}

	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		// The covers endpoint serves JPEGs, so that's the sensible default.
		ext = ".jpg"
	}
	filename := externalID + ext

	// Write to a temp file and rename so a concurrent reader never sees a
	// partially written image.
	tmp := filepath.Join(s.dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", errors.WithStack(err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, filename)); err != nil {
		os.Remove(tmp)
		return "", errors.WithStack(err)
	}

	return filename, nil
}

// Remove deletes a stored cover file. A file that's already gone is not an
// error.
func (s *Store) Remove(filename string) error {
	if filename == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filename))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.WithStack(err)
	}
	return nil
}

// Path returns the absolute location of a stored cover file.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}
