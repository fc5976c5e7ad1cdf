package core

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error. Every failure surfaced by aethel carries exactly one Kind;
// the numeric protocol code for a Kind is obtained with Code.
type Kind int

const (
	KindInternal Kind = iota

	// Malformed input.
	KindMalformedRequestJSON
	KindUnknownPatchMode
	KindInvalidPatch
	KindAttemptToSetReservedKey
	KindMissingRequiredField
	KindInvalidIDFormat
	KindInvalidSemVerFormat
	KindInvalidTimestampFormat
	KindMalformedYAML
	KindMissingOpeningDelimiter
	KindMissingClosingDelimiter
	KindInvalidPackManifest
	KindInvalidArgument

	// Not found.
	KindDocNotFound
	KindPackNotFound
	KindPackTypeNotFound
	KindSchemaFileNotFound

	// Conflict.
	KindPackAlreadyInstalled
	KindTypeMismatchOnUpdate
	KindConcurrentWriteConflict

	// Semantic validation.
	KindSchemaValidation
	KindProtocolVersionMismatch

	// Internal / storage.
	KindIO
	KindPersistFailed
	KindSchemaCompilation
	KindJSONProcessing
	KindLockFile
)

var kindNames = map[Kind]string{
	KindInternal:                "internal",
	KindMalformedRequestJSON:    "malformed request json",
	KindUnknownPatchMode:        "unknown patch mode",
	KindInvalidPatch:            "invalid patch",
	KindAttemptToSetReservedKey: "attempt to set reserved key",
	KindMissingRequiredField:    "missing required field",
	KindInvalidIDFormat:         "invalid id format",
	KindInvalidSemVerFormat:     "invalid semver format",
	KindInvalidTimestampFormat:  "invalid timestamp format",
	KindMalformedYAML:           "malformed yaml",
	KindMissingOpeningDelimiter: "missing opening front matter delimiter",
	KindMissingClosingDelimiter: "missing closing front matter delimiter",
	KindInvalidPackManifest:     "invalid pack manifest",
	KindInvalidArgument:         "invalid argument",
	KindDocNotFound:             "document not found",
	KindPackNotFound:            "pack not found",
	KindPackTypeNotFound:        "pack type not found",
	KindSchemaFileNotFound:      "schema file not found",
	KindPackAlreadyInstalled:    "pack already installed",
	KindTypeMismatchOnUpdate:    "type mismatch on update",
	KindConcurrentWriteConflict: "concurrent write conflict",
	KindSchemaValidation:        "schema validation failed",
	KindProtocolVersionMismatch: "protocol version mismatch",
	KindIO:                      "io error",
	KindPersistFailed:           "persist failed",
	KindSchemaCompilation:       "schema compilation failed",
	KindJSONProcessing:          "json processing error",
	KindLockFile:                "lock file error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned across package boundaries.
// Only the fields relevant to Kind are populated.
type Error struct {
	Kind Kind

	// Field names a missing field (MissingRequiredField) and Mode the patch mode
	// that required it, if any.
	Field string
	Mode  string
	// Key is the offending front matter key (AttemptToSetReservedKey).
	Key string
	// Expected and Got describe a mismatch (TypeMismatchOnUpdate,
	// ProtocolVersionMismatch, SchemaValidation, invalid formats).
	Expected string
	Got      string
	// Pointer is the JSON pointer of the first schema violation.
	Pointer string
	// Name is the pack or type the error refers to.
	Name string
	// ID and Path give document context when known.
	ID   string
	Path string

	Msg string
	Err error
}

// Error-kind sentinels for use with errors.Is.
var (
	ErrDocNotFound             = &Error{Kind: KindDocNotFound}
	ErrPackNotFound            = &Error{Kind: KindPackNotFound}
	ErrPackTypeNotFound        = &Error{Kind: KindPackTypeNotFound}
	ErrSchemaFileNotFound      = &Error{Kind: KindSchemaFileNotFound}
	ErrSchemaValidation        = &Error{Kind: KindSchemaValidation}
	ErrTypeMismatchOnUpdate    = &Error{Kind: KindTypeMismatchOnUpdate}
	ErrReservedKey             = &Error{Kind: KindAttemptToSetReservedKey}
	ErrMissingRequiredField    = &Error{Kind: KindMissingRequiredField}
	ErrPersistFailed           = &Error{Kind: KindPersistFailed}
	ErrPackAlreadyInstalled    = &Error{Kind: KindPackAlreadyInstalled}
	ErrProtocolVersionMismatch = &Error{Kind: KindProtocolVersionMismatch}
	ErrConcurrentWrite         = &Error{Kind: KindConcurrentWriteConflict}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())

	switch e.Kind {
	case KindMissingRequiredField:
		fmt.Fprintf(&b, ": %q", e.Field)
		if e.Mode != "" {
			fmt.Fprintf(&b, " (mode %s)", e.Mode)
		}
	case KindAttemptToSetReservedKey:
		fmt.Fprintf(&b, ": %q", e.Key)
	case KindTypeMismatchOnUpdate, KindProtocolVersionMismatch:
		fmt.Fprintf(&b, ": expected %q, got %q", e.Expected, e.Got)
	case KindInvalidIDFormat, KindInvalidSemVerFormat, KindInvalidTimestampFormat:
		if e.Field != "" {
			fmt.Fprintf(&b, " in %q", e.Field)
		}
		fmt.Fprintf(&b, ": %q", e.Got)
	case KindPackNotFound, KindPackTypeNotFound, KindPackAlreadyInstalled:
		fmt.Fprintf(&b, ": %q", e.Name)
	case KindSchemaValidation:
		ptr := e.Pointer
		if ptr == "" {
			ptr = "/"
		}
		fmt.Fprintf(&b, " at %s", ptr)
	}

	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " [id=%s]", e.ID)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " [path=%s]", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around err.
// An err that already is an *Error is returned as-is.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind carried by err, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// WithContext attaches document context to err without losing its kind.
func WithContext(err error, id, path string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: KindInternal, ID: id, Path: path, Err: err}
	}
	cp := *e
	if cp.ID == "" {
		cp.ID = id
	}
	if cp.Path == "" {
		cp.Path = path
	}
	return &cp
}
