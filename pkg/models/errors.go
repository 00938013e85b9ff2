package models

import "errors"

// File errors
var (
	ErrFileNotFound  = errors.New("file not found")
	ErrDuplicateFile = errors.New("file already exists")
)

// Chunk errors
var (
	ErrChunkNotFound  = errors.New("chunk not found")
	ErrDuplicateChunk = errors.New("chunk already exists")
)

// Validation errors
var (
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("priority must be between 0 and 10")
)
