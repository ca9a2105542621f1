package validator

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/futig/doc-chat/internal/config"
	"github.com/futig/doc-chat/internal/entity"
	"golang.org/x/text/unicode/norm"
)

// Validator validates file uploads and request payloads
type Validator struct {
	cfg     config.FileUploadConfig
	allowed map[string]bool
}

func NewFileValidator(cfg config.FileUploadConfig) *Validator {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Validator{cfg: cfg, allowed: allowed}
}

// Extension returns the lowercased substring after the last dot, or "" when there is none.
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// AllowedFile reports whether filename carries an allowed extension.
func (v *Validator) AllowedFile(filename string) bool {
	ext := Extension(filename)
	return ext != "" && v.allowed[ext]
}

// ValidateUpload validates a single uploaded file before anything is persisted
func (v *Validator) ValidateUpload(filename string, size int64) error {
	if filename == "" {
		return fmt.Errorf("%w: file", entity.ErrMissingField)
	}

	if !strings.Contains(filename, ".") {
		return fmt.Errorf("%w: '%s' has no extension", entity.ErrInvalidExtension, filename)
	}

	if !v.AllowedFile(filename) {
		return fmt.Errorf("%w: .%s (allowed: %s)", entity.ErrInvalidExtension, Extension(filename), strings.Join(v.cfg.AllowedExtensions, ", "))
	}

	if size > v.cfg.MaxUploadSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, filename, size, v.cfg.MaxUploadSize)
	}

	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename makes a client supplied filename safe to store on disk.
// The result is ASCII only, may be empty, and never contains a path separator.
func SanitizeFilename(filename string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(filename) {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	filename = b.String()

	filename = strings.NewReplacer("/", " ", "\\", " ").Replace(filename)
	filename = strings.Join(strings.Fields(filename), "_")
	filename = unsafeFilenameChars.ReplaceAllString(filename, "")
	return strings.Trim(filename, "._")
}

// StorageFilename sanitizes filename and re-appends the original extension when
// sanitizing dropped it, so content type detection keeps working.
func StorageFilename(filename string) string {
	ext := Extension(filepath.Base(filename))
	safe := SanitizeFilename(filename)
	if ext == "" {
		return safe
	}

	safeExt := SanitizeFilename(ext)
	if safeExt == "" || Extension(safe) == strings.ToLower(safeExt) {
		return safe
	}
	if safe == "" {
		return "upload." + safeExt
	}
	return safe + "." + safeExt
}
