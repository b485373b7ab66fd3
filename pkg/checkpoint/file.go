package checkpoint

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileStrategy stores every checkpoint as a JSON file named after its identifier.
type FileStrategy struct {
	dir string
}

// NewFileStrategy returns a strategy writing into dir, created on first save.
func NewFileStrategy(dir string) (*FileStrategy, error) {
	if dir == "" {
		return nil, errors.New("checkpoint directory is required")
	}

	return &FileStrategy{dir: dir}, nil
}

func (s *FileStrategy) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the checkpoint atomically: a temporary file is synced then renamed over the previous one.
func (s *FileStrategy) Save(ctx context.Context, id string, data Data) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context cancelled")
	}
	if err := ValidateIdentifier(id); err != nil {
		return err
	}
	content, err := encode(id, data)
	if err != nil {
		return err
	}

	err = os.MkdirAll(s.dir, 0o750)
	if err != nil {
		return errors.Wrapf(err, "unable to create checkpoint directory %s", s.dir)
	}

	tempFile, err := os.CreateTemp(s.dir, ".checkpoint-*.tmp")
	if err != nil {
		return errors.Wrap(err, "unable to create temp file")
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		tempFile.Close()

		return errors.Wrap(err, "unable to write checkpoint")
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()

		return errors.Wrap(err, "unable to sync checkpoint")
	}
	if err := tempFile.Close(); err != nil {
		return errors.Wrap(err, "unable to close checkpoint")
	}
	if err := os.Rename(tempPath, s.path(id)); err != nil {
		return errors.Wrap(err, "unable to rename checkpoint")
	}
	success = true

	return nil
}

// Restore reads the checkpoint of id. A missing file is reported as absent.
func (s *FileStrategy) Restore(ctx context.Context, id string) (Data, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, errors.Wrap(err, "context cancelled")
	}
	if err := ValidateIdentifier(id); err != nil {
		return nil, false, err
	}

	content, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to read checkpoint %s", id)
	}

	data, err := decode(id, content)
	if err != nil {
		return nil, false, err
	}

	return data, true, nil
}

// Delete removes the checkpoint file of id.
func (s *FileStrategy) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context cancelled")
	}
	if err := ValidateIdentifier(id); err != nil {
		return err
	}

	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "unable to delete checkpoint %s", id)
	}

	return nil
}

var (
	_ Strategy = (*FileStrategy)(nil)
	_ Deleter  = (*FileStrategy)(nil)
)
