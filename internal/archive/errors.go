package archive

import "errors"

var (
	// ErrInvalidName indicates a file name that does not follow the schema.
	ErrInvalidName = errors.New("archive: invalid file name")

	// ErrInvalidKey indicates a key that cannot be encoded into a file name.
	ErrInvalidKey = errors.New("archive: invalid key")
)
