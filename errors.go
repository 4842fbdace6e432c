// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

import "errors"

// Sentinel errors for archive engine operations. Use errors.Is in callers.
var (
	// ErrTruncated means the backing stream ended before an expected field or record.
	ErrTruncated = errors.New("archive: truncated")
	// ErrBadSignature means the strategy's signature check rejected the stream.
	ErrBadSignature = errors.New("archive: bad signature")
	// ErrFormatLimit means a format-specific capacity limit was exceeded.
	ErrFormatLimit = errors.New("archive: format limit exceeded")
	// ErrInvalidName means a name failed length or character validation.
	ErrInvalidName = errors.New("archive: invalid name")
	// ErrNotSupported means the strategy does not support the requested operation.
	ErrNotSupported = errors.New("archive: operation not supported")
	// ErrCorruptFAT means the on-disk file allocation table is internally inconsistent.
	ErrCorruptFAT = errors.New("archive: corrupt FAT")
	// ErrIO wraps an underlying stream I/O failure.
	ErrIO = errors.New("archive: I/O error")
	// ErrPoisoned means a prior mutation failed after a partial on-disk change;
	// the Archive must be discarded.
	ErrPoisoned = errors.New("archive: poisoned, discard this instance")
	// ErrHandleInvalid means the handle's entry has been removed.
	ErrHandleInvalid = errors.New("archive: handle no longer valid")
	// ErrEntryNotFound means no entry matches the requested name.
	ErrEntryNotFound = errors.New("archive: entry not found")
	// ErrOutOfBounds means a seek or window fell outside the stream's logical size.
	ErrOutOfBounds = errors.New("archive: out of bounds")
	// ErrAlreadyOpenForWrite means a writable sub-stream is already live for this entry.
	ErrAlreadyOpenForWrite = errors.New("archive: entry already open for write")
	// ErrNoStrategyMatch means the registry found no strategy confident enough to open the stream.
	ErrNoStrategyMatch = errors.New("archive: no matching format strategy")
	// ErrCannotCreate means the strategy cannot build a new archive from scratch.
	ErrCannotCreate = errors.New("archive: format cannot be created from scratch")
	// ErrUnknownAttribute means an attribute index is out of range.
	ErrUnknownAttribute = errors.New("archive: unknown attribute")
	// ErrSameUnderlyingStream means two Archive instances tried to wrap the same backing stream.
	ErrSameUnderlyingStream = errors.New("archive: backing stream already owned by another archive")
)

// FormatLimitError carries a human message for a format-specific capacity failure.
type FormatLimitError struct{ Msg string }

func (e *FormatLimitError) Error() string { return "archive: format limit: " + e.Msg }
func (e *FormatLimitError) Unwrap() error { return ErrFormatLimit }

// InvalidNameError carries a human message for a rejected name.
type InvalidNameError struct{ Msg string }

func (e *InvalidNameError) Error() string { return "archive: invalid name: " + e.Msg }
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// NotSupportedError carries a human message for an unsupported operation.
type NotSupportedError struct{ Msg string }

func (e *NotSupportedError) Error() string { return "archive: not supported: " + e.Msg }
func (e *NotSupportedError) Unwrap() error { return ErrNotSupported }

// CorruptFATError carries a human message for a malformed on-disk FAT.
type CorruptFATError struct{ Msg string }

func (e *CorruptFATError) Error() string { return "archive: corrupt FAT: " + e.Msg }
func (e *CorruptFATError) Unwrap() error { return ErrCorruptFAT }

// IOError wraps an I/O failure with a coarse kind tag.
type IOError struct {
	Kind string // "read", "write", "seek", "truncate"
	Err  error
}

func (e *IOError) Error() string { return "archive: io error (" + e.Kind + "): " + e.Err.Error() }
func (e *IOError) Unwrap() error { return ErrIO }
