package parser

import (
	"fmt"

	"github.com/mna/tangle/lang/token"
)

// Kind names a distinct parser failure. Every production in the header and
// body grammars (spec.md §4.2) that can fail reports one of these, so a
// caller (or test) can match on the failure kind rather than parsing error
// strings.
type Kind string

//nolint:revive
const (
	ErrMissingLanguageSpec       Kind = "missing language specification"
	ErrExpectedColon             Kind = "expected ':'"
	ErrExpectedSingleSpace       Kind = "expected exactly one space"
	ErrExpectedWord              Kind = "expected a word"
	ErrInvalidEscSpec            Kind = "invalid esc spec"
	ErrMismatchedDelimiterLength Kind = "mismatched delimiter length"
	ErrExpectedTarget            Kind = "expected 'file:' or 'tag:'"
	ErrExpectedHash              Kind = "expected '#'"
	ErrExpectedNewline           Kind = "expected newline"
	ErrInvalidDivisionLine       Kind = "division line length does not match header"
	ErrMissingBlankAfterHeader   Kind = "missing blank line after header"
	ErrMissingBlankAfterBlock    Kind = "missing blank line after block"
	ErrPathTraversal             Kind = "path contains a traversal segment"
	ErrAbsolutePathNotAllowed    Kind = "absolute paths are not allowed"
	ErrUnclosedDelimiter         Kind = "unclosed placeholder delimiter"
	ErrInvalidCastShape          Kind = "invalid type cast shape"
	ErrMultipleFilesSameName     Kind = "multiple files with the same name"
	ErrEmptyPlaceholderName      Kind = "empty placeholder name"
)

// Error is the parser's uniform error type: a Kind plus the source location
// and offending token, matching spec.md §7's "every production has a
// distinct, human-readable error value ... carry the current token and the
// source location."
type Error struct {
	Kind     Kind
	Location token.Location
	Token    token.Token
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Location.Line, e.Location.Column, e.Kind)
}

// IsMissingLanguageSpec reports whether err is the sentinel error the
// top-level loop treats specially (skip the indented block and resume,
// rather than aborting the whole parse).
func IsMissingLanguageSpec(err error) bool {
	pe, ok := err.(*Error)
	return ok && pe.Kind == ErrMissingLanguageSpec
}
