package utils

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxAttachments    = 5
	MaxAttachmentSize = 10 << 20 // 10MB per file
)

var allowedAttachmentExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

var (
	ErrTooManyAttachments = fmt.Errorf("a complaint may have at most %d attachments", MaxAttachments)
	ErrAttachmentTooLarge = errors.New("attachment exceeds the 10MB limit")
	ErrAttachmentType     = errors.New("only images and documents are allowed")
)

// UploadDir resolves the attachment directory from the environment.
func UploadDir() string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = filepath.Join("public", "uploads", "complaints")
	}
	return dir
}

// ValidateAttachments applies the submission limits to a multipart file
// set before anything is written to disk or the database.
func ValidateAttachments(files []*multipart.FileHeader) error {
	if len(files) > MaxAttachments {
		return ErrTooManyAttachments
	}
	for _, file := range files {
		if file.Size > MaxAttachmentSize {
			return ErrAttachmentTooLarge
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedAttachmentExts[ext] {
			return ErrAttachmentType
		}
	}
	return nil
}

// AttachmentPath builds a collision-free on-disk path while keeping the
// original extension.
func AttachmentPath(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	return filepath.Join(UploadDir(), name)
}

// AllowedUploadExt is the allowlist the static /uploads route enforces.
func AllowedUploadExt(path string) bool {
	return allowedAttachmentExts[strings.ToLower(filepath.Ext(path))]
}
