package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies an expected failure.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidFormat
	KindInvalidStatus
	KindClaimRequired
	KindClaimExists
	KindClaimNotFound
	KindUnresolvedBugDeps
	KindCircularDependency
	KindInvalidDeps
	KindNoChanges
	KindReadFailed
	KindWriteFailed
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindNotFound:           "not found",
	KindInvalidFormat:      "invalid format",
	KindInvalidStatus:      "invalid status",
	KindClaimRequired:      "claim required",
	KindClaimExists:        "already claimed",
	KindClaimNotFound:      "claim not found",
	KindUnresolvedBugDeps:  "unresolved bug dependencies",
	KindCircularDependency: "circular dependency",
	KindInvalidDeps:        "invalid dependencies",
	KindNoChanges:          "no changes",
	KindReadFailed:         "read failed",
	KindWriteFailed:        "write failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the structured error returned for every expected failure.
type Error struct {
	Kind    Kind
	ID      ID
	Message string
	Path    string
	Err     error
}

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind Kind, id ID, format string, args ...any) *Error {
	return &Error{Kind: kind, ID: id, Message: fmt.Sprintf(format, args...)}
}

// IOError wraps an I/O failure on path.
func IOError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.ID != "" {
		msg = e.ID.Ref() + ": " + msg
	}
	if e.Path != "" {
		msg = msg + " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind. A double claim also satisfies
// ErrClaimRequired because the caller lacks the live key.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindClaimRequired && e.Kind == KindClaimExists
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidFormat      = &Error{Kind: KindInvalidFormat}
	ErrInvalidStatus      = &Error{Kind: KindInvalidStatus}
	ErrClaimRequired      = &Error{Kind: KindClaimRequired}
	ErrClaimExists        = &Error{Kind: KindClaimExists}
	ErrClaimNotFound      = &Error{Kind: KindClaimNotFound}
	ErrUnresolvedBugDeps  = &Error{Kind: KindUnresolvedBugDeps}
	ErrCircularDependency = &Error{Kind: KindCircularDependency}
	ErrInvalidDeps        = &Error{Kind: KindInvalidDeps}
	ErrNoChanges          = &Error{Kind: KindNoChanges}
	ErrReadFailed         = &Error{Kind: KindReadFailed}
	ErrWriteFailed        = &Error{Kind: KindWriteFailed}
)

// Store lifecycle errors.
var (
	ErrStoreClosed   = errors.New("store is closed")
	ErrAlreadyOpen   = errors.New("store is already open")
	ErrBatchActive   = errors.New("a batch is already active")
	ErrNoActiveBatch = errors.New("no active batch")
)

// Failure is one failed item of a batch operation.
type Failure struct {
	ID  ID
	Err error
}

// MarshalJSON writes the failure as its id, kind name and message.
func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		ID    ID     `json:"id"`
		Kind  string `json:"kind"`
		Error string `json:"error"`
	}{f.ID, KindOf(f.Err).String(), msg})
}

// BatchResult collects per-item outcomes. One failing item never aborts
// the others.
type BatchResult[T any] struct {
	Success []T
	Failed  []Failure
}

// Fail records a failed item.
func (b *BatchResult[T]) Fail(id ID, err error) {
	b.Failed = append(b.Failed, Failure{ID: id, Err: err})
}

// Succeed records a successful item.
func (b *BatchResult[T]) Succeed(v T) {
	b.Success = append(b.Success, v)
}

// OK reports whether no item failed.
func (b BatchResult[T]) OK() bool {
	return len(b.Failed) == 0
}
