package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

// allowedImageFormats are the accepted garment photo extensions
var allowedImageFormats = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	// Check file size
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	// Check file extension
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := allowedImageFormats[ext]; !ok {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only PNG and JPEG files are allowed",
		}
	}

	return nil
}

// ContentTypeForImage returns the MIME type for an image filename,
// defaulting to image/jpeg for unknown extensions
func ContentTypeForImage(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if contentType, ok := allowedImageFormats[ext]; ok {
		return contentType
	}
	return "image/jpeg"
}
