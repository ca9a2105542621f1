package entity

import "errors"

// Domain errors
var (
	// File errors
	ErrInvalidFile      = errors.New("invalid file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")

	// Extraction errors
	ErrExtractionFailed     = errors.New("document extraction failed")
	ErrUnsupportedFormat    = errors.New("unsupported document format")
	ErrNoExtractableContent = errors.New("no text content found in document")

	// Corpus errors
	ErrNothingToImport  = errors.New("no valid chunks to import")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("resource not found")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)
