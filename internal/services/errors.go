package services

import "errors"

// Service errors
var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrEmptyUpload       = errors.New("uploaded file is empty")
)
