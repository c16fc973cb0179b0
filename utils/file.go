package utils

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrFileTooLarge    = errors.New("file size exceeds maximum allowed size")
	ErrInvalidFileType = errors.New("invalid file type. Only images are allowed")
)

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func ValidateImageUpload(filename string, size, maxSize int64) error {
	if size <= 0 {
		return errors.New("file is empty")
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w (max %d bytes)", ErrFileTooLarge, maxSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExtensions[ext] {
		return ErrInvalidFileType
	}
	return nil
}
