package sqlitefile

import (
	"errors"
)

var (
	ErrInvalidPageType            = errors.New("invalid page type")
	ErrInvalidSerialType          = errors.New("invalid serial type")
	ErrTruncatedVarint            = errors.New("truncated varint")
	ErrRecordHeaderLengthMismatch = errors.New("record header length mismatch")
	ErrInvalidUTF8                = errors.New("invalid utf-8 text")
	ErrCorruptPage                = errors.New("corrupt page")
	ErrNoSuchTable                = errors.New("no such table")
	ErrUnsupportedCommand         = errors.New("unsupported command")

	ErrCorruptHeader       = errors.New("corrupt database header")
	ErrUnsupportedEncoding = errors.New("unsupported text encoding")
	ErrOverflowPayload     = errors.New("payload spills to overflow pages")
	ErrCorruptSchema       = errors.New("corrupt schema table")
)
