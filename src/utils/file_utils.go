package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EnsureDirectoryExists creates dir (and parents) if it is not present.
func EnsureDirectoryExists(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// GenerateUniqueFilename returns a collision-free stored name for an uploaded
// file, preserving the original extension.
func GenerateUniqueFilename(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s%s", uuid.NewString(), ext)
}

// DeleteFileIfExists removes path, treating a missing file as success.
func DeleteFileIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
