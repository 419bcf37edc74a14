package store

import (
	"context"
	"os"
	"path/filepath"
)

type FilePlanStore struct {
	FilePath string
}

func NewFilePlanStore(filePath string) *FilePlanStore {
	return &FilePlanStore{FilePath: filePath}
}

func (s *FilePlanStore) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(s.FilePath)
}

func (s *FilePlanStore) Save(ctx context.Context, data []byte) error {
	if dir := filepath.Dir(s.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.FilePath, data, 0o644)
}
