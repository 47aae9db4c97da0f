// Package generator defines the documentation generator contract and ships
// an Ollama-backed implementation. Generated text is opaque to the rest of
// the pipeline beyond its kind and target anchor.
package generator

import (
	"context"
	"errors"
	"fmt"
)

// Kind distinguishes the two documentation shapes a generator produces.
type Kind string

const (
	// BlockDoc is a structured comment block preceding a function.
	BlockDoc Kind = "BLOCK_DOC"
	// InlineComments is a set of single-line annotations inside a function body.
	InlineComments Kind = "INLINE_COMMENTS"
)

// InlineComment targets a 1-based line relative to the function start.
type InlineComment struct {
	Line int    `json:"line"`
	Text string `json:"comment"`
}

// Documentation is a generated result bound to one function identity.
type Documentation struct {
	Function string
	Kind     Kind
	Text     string
	Inline   []InlineComment
}

// Generator produces documentation for a function's text. Implementations
// must honor context cancellation; calls are expected to block for
// non-trivial wall-clock time.
type Generator interface {
	// GenerateBlockDoc returns a documentation block for the function text.
	GenerateBlockDoc(ctx context.Context, functionText string) (string, error)
	// GenerateInlineComments returns ordered line annotations for the
	// function text; lines are 1-based relative to the function start.
	GenerateInlineComments(ctx context.Context, functionText string) ([]InlineComment, error)
}

// TransientError marks a failure worth retrying, such as a network fault or
// an unavailable service.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient generator error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure that retrying cannot fix, such as a
// response that does not parse per the documentation contract.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent generator error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// Permanent wraps err as non-retryable.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is a non-retryable generator failure.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}
