package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileManager reads and writes files below a root directory.
type FileManager struct {
	rootDir string
}

// NewFileManager creates a new FileManager with the given root directory.
func NewFileManager(rootDir string) *FileManager {
	return &FileManager{rootDir: rootDir}
}

// GetPath returns the full path of a file or directory below the root.
func (fm *FileManager) GetPath(path string) string {
	return filepath.Join(fm.rootDir, path)
}

// PathExists returns true if the path exists, false otherwise.
func (fm *FileManager) PathExists(path string) bool {
	_, err := os.Stat(fm.GetPath(path))
	return !os.IsNotExist(err)
}

// CreateDirectory creates a directory if it does not exist.
func (fm *FileManager) CreateDirectory(directory string) error {
	return os.MkdirAll(fm.GetPath(directory), 0o755)
}

// ReadFile reads the contents of a file and returns the data.
func (fm *FileManager) ReadFile(path string) ([]byte, error) {
	if !fm.PathExists(path) {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(fm.GetPath(path))
}

// LoadJSONFile loads a JSON file and unmarshals it into v.
func (fm *FileManager) LoadJSONFile(path string, v interface{}) error {
	data, err := fm.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", path, err)
	}
	return nil
}

// SaveJSONFile marshals data and writes it to path, creating parent
// directories. The file is replaced atomically.
func (fm *FileManager) SaveJSONFile(data interface{}, path string) error {
	fullPath := fm.GetPath(path)
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data to JSON for %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp, fullPath)
}

// ListJSONFiles returns the sorted names of the .json files in directory.
func (fm *FileManager) ListJSONFiles(directory string) ([]string, error) {
	entries, err := os.ReadDir(fm.GetPath(directory))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
