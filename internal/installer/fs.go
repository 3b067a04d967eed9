package installer

import (
	"os"
	"path/filepath"
)

// FileSystem is the file-system collaborator the sequencer and appearance
// editor write through. Paths are absolute; implementations own no state.
type FileSystem interface {
	Exists(path string) bool
	MkdirAll(path string) error
	WriteFile(path string, data []byte) error
	ReadFile(path string) ([]byte, error)
	ListDir(path string) ([]string, error)
}

// OSFileSystem implements FileSystem against the local disk.
type OSFileSystem struct{}

// NewOSFileSystem returns the disk-backed file system.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func (OSFileSystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ListDir returns the names of regular files directly under path.
func (OSFileSystem) ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, filepath.Base(entry.Name()))
	}
	return names, nil
}
