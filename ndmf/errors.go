package ndmf

import "errors"

var (
	ErrClosed        = errors.New("file is closed")
	ErrCorrupt       = errors.New("corrupt file format")
	ErrNameTooLong   = errors.New("name too long")
	ErrInvalidLayout = errors.New("invalid layout")
)
