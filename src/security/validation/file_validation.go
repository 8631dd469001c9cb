package validation

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/username/tradelog/backend/src/logger"
)

// AllowedImageContentTypes is a map for quick lookup of allowed client-declared
// MIME types for trade screenshot uploads.
var AllowedImageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// ValidateImageUpload checks the client-declared Content-Type and the filename
// extension of an uploaded trade image.
func ValidateImageUpload(filename, contentType string) error {
	if !AllowedImageContentTypes[strings.ToLower(contentType)] {
		logger.L.Warn("Disallowed client-declared image Content-Type", "contentType", contentType)
		return fmt.Errorf("file type '%s' is not allowed for image upload", contentType)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExtensions[ext] {
		logger.L.Warn("Disallowed image file extension", "filename", filename)
		return fmt.Errorf("file extension '%s' is not allowed for image upload", ext)
	}
	return nil
}

// ValidateImageContentByMagicBytes checks the actual file content signature.
// It returns the detected content type and an error if the content does not
// look like one of the allowed image formats.
func ValidateImageContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512) // http.DetectContentType reads at most 512 bytes
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the read pointer so the caller can store the full file afterwards.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	detectedContentType := strings.ToLower(strings.Split(http.DetectContentType(buffer[:n]), ";")[0])
	if !AllowedImageContentTypes[detectedContentType] {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detectedContentType)
		return detectedContentType, fmt.Errorf("detected file content type '%s' is not an allowed image format", detectedContentType)
	}

	logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", detectedContentType)
	return detectedContentType, nil
}
