// Package mailfold implements mail folder storage: an object model for
// messages (headers, multi-representation bodies, lazy loading), an RFC 2822
// parser, and the physical folder layouts that persist them.
package mailfold

import (
	"errors"

	"github.com/mailfold/mailfold/folder"
	"github.com/mailfold/mailfold/message"
	"github.com/mailfold/mailfold/parser"
)

// IsNoFolder returns true if the error is folder.ErrNoFolder.
func IsNoFolder(err error) bool {
	return errors.Is(err, folder.ErrNoFolder)
}

// IsReadOnly returns true if the error is folder.ErrReadOnly.
func IsReadOnly(err error) bool {
	return errors.Is(err, folder.ErrReadOnly)
}

// IsLockTimeout returns true if the error is folder.ErrLockTimeout.
func IsLockTimeout(err error) bool {
	return errors.Is(err, folder.ErrLockTimeout)
}

// IsFileChanged returns true if the error is parser.ErrFileChanged.
func IsFileChanged(err error) bool {
	return errors.Is(err, parser.ErrFileChanged)
}

// IsNoLoader returns true if the error is message.ErrNoLoader.
func IsNoLoader(err error) bool {
	return errors.Is(err, message.ErrNoLoader)
}
