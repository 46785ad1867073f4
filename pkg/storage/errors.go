package storage

import "errors"

var (
	// Configuration errors
	ErrInvalidArgument    = errors.New("invalid storage argument")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrFailedToLoadConfig = errors.New("failed to load AWS config")
	ErrPaginatorNil       = errors.New("paginator factory returned nil")

	// Environment errors
	ErrNotReadable = errors.New("storage path is not readable")
	ErrNotWritable = errors.New("storage path is not writable")

	// Security errors
	ErrInvalidPath   = errors.New("invalid path") // Escapes the storage root
	ErrInvalidUpload = errors.New("file is not a verified upload")

	// File system errors
	ErrFileNotFound      = errors.New("file not found")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNotDirectory      = errors.New("path is not a directory")
	ErrIsDirectory       = errors.New("path is a directory")

	// I/O operation errors
	ErrFailedToMoveFile        = errors.New("failed to move file")
	ErrFailedToCopyFile        = errors.New("failed to copy file")
	ErrFailedToDeleteFile      = errors.New("failed to delete file")
	ErrFailedToDeleteDirectory = errors.New("failed to delete directory")
	ErrFailedToStatPath        = errors.New("failed to stat path")

	// S3-specific errors
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrRequestTimeout     = errors.New("request timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable") // Throttling included
	ErrInvalidObjectState = errors.New("invalid object state")

	// Context errors
	ErrOperationTimeout  = errors.New("operation timed out")
	ErrOperationCanceled = errors.New("operation canceled")
)
