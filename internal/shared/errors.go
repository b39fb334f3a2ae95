package shared

import "errors"

var (
	// ErrRecordNotFound indicates the referenced survey session does not exist.
	ErrRecordNotFound = errors.New("survey record not found")
)
