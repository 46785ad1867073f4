package fetch

import "errors"

var (
	ErrInvalidURL       = errors.New("invalid fetch URL")
	ErrRequestFailed    = errors.New("fetch request failed")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrTooLarge         = errors.New("response body exceeds size limit")
)
