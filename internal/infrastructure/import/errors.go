package csvimport

import (
	"errors"
)

// Maximum accepted upload size
const MaxFileSize = 5 << 20

// Common import errors
var (
	// ErrEmptyFile is returned when the upload holds no data lines
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the upload is not UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding, expected UTF-8")

	// ErrFileTooLarge is returned when the upload exceeds MaxFileSize
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)
