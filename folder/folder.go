// Package folder defines the folder abstraction shared by the physical
// mailbox layouts and the options used to open one.
package folder

import (
	"errors"

	"github.com/mailfold/mailfold/message"
)

var (
	// ErrNoFolder is returned when the backing path does not exist and
	// creation was not requested.
	ErrNoFolder = errors.New("no such folder")

	// ErrReadOnly is returned when a mutating operation reaches a folder
	// opened (or degraded) read-only.
	ErrReadOnly = errors.New("folder is read-only")
)

// Access is the mode a folder is opened with.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

// Filter selects which messages an enumeration yields.
type Filter int

const (
	// All yields every message, deleted or not.
	All Filter = iota

	// Active yields only messages not marked deleted.
	Active

	// Deleted yields only messages marked deleted.
	Deleted
)

// WritePolicy tells Close what to do with pending changes.
type WritePolicy int

const (
	// Discard drops all in-memory changes.
	Discard WritePolicy = iota

	// Flush writes all changes back before closing.
	Flush
)

// Folder is one logical ordered collection of messages backed by a physical
// layout. Implementations are single-threaded; callers serialize access.
type Folder interface {
	// Name returns the folder's backing path.
	Name() string

	// Messages returns the message list in folder order, narrowed by the
	// filter. The returned slice is the caller's to keep.
	Messages(Filter) []*message.Message

	// Add appends a new message to the folder. It is written out on the
	// next flush.
	Add(*message.Message) error

	// Write flushes all pending changes to the backing layout.
	Write() error

	// Close releases the folder, flushing first when the policy says so.
	Close(WritePolicy) error
}

// Keep narrows a message list by the filter. Layouts share this so that
// All/Active/Deleted mean the same thing everywhere.
func Keep(m *message.Message, filter Filter) bool {
	switch filter {
	case Active:
		return !m.IsDeleted()

	case Deleted:
		return m.IsDeleted()

	default:
		return true
	}
}
