package core

import (
	"errors"
	"fmt"

	"github.com/illarion/slimedit/internal/container"
	"github.com/illarion/slimedit/internal/crypto"
)

var (
	ErrPasswordRequired = errors.New("password required")
	ErrNotEncrypted     = errors.New("document is not encrypted")
	ErrAlreadyEncrypted = errors.New("document is already encrypted")
	ErrBinaryFile       = errors.New("file is not a text document")
	ErrNoIndex          = errors.New("document index is disabled")
)

// IOError reports a failed read or write of a document
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Describe converts an error into the message shown to the user.
// Decryption failures never leak details beyond "incorrect password".
func Describe(err error) string {
	var ioErr *IOError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, crypto.ErrAuthFailed):
		return "failed to decrypt: incorrect password"
	case errors.Is(err, crypto.ErrDecode), errors.Is(err, container.ErrUnsupportedFile):
		return "error occurred while opening the file"
	case errors.Is(err, ErrPasswordRequired):
		return "password required"
	case errors.As(err, &ioErr):
		return ioErr.Error()
	default:
		return err.Error()
	}
}
