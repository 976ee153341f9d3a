package service

import "errors"

// ErrEmptyRequest is returned when an upload carries no file or an empty one.
var ErrEmptyRequest = errors.New("no file provided or file is empty")
