package drive

import (
	"errors"
	"fmt"
)

// Kind classifies a store error structurally, so callers branch on a tag
// instead of matching message substrings.
type Kind int

const (
	// KindUnknown is an unclassified failure; treated as unrecoverable.
	KindUnknown Kind = iota
	// KindNotFound means a referenced id does not resolve. Fatal to the
	// single action, not to a whole run.
	KindNotFound
	// KindTransient is a temporary failure (timeout, connection reset);
	// worth retrying.
	KindTransient
	// KindQuotaExceeded means the provider throttled the call; retryable
	// after backoff.
	KindQuotaExceeded
	// KindPolicyViolation means a policy declined to act (e.g. a manual
	// conflict decision was refused).
	KindPolicyViolation
	// KindUnrecoverable means the store rejected the write permanently.
	KindUnrecoverable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindPolicyViolation:
		return "policy_violation"
	case KindUnrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by store adapters and the engine.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "list_children"
	Ref  string // the id or path involved
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s %s: %v", e.Kind, e.Op, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s %s %s", e.Kind, e.Op, e.Ref)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a tagged store error.
func NewError(kind Kind, op, ref string, err error) *Error {
	return &Error{Kind: kind, Op: op, Ref: ref, Err: err}
}

// KindOf extracts the Kind from an error chain, KindUnknown if untagged.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// Retryable reports whether the error is worth another attempt.
func Retryable(err error) bool {
	k := KindOf(err)
	return k == KindTransient || k == KindQuotaExceeded
}

// IsNotFound reports whether the error chain carries KindNotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
