// Package lexer implements the tangle engine's tokenizer: a hand-written,
// allocation-free, pull-style lexer over a byte slice. It has no notion of
// the literate document's grammar; it only groups bytes into the closed tag
// set defined by token.Tag.
package lexer

import "github.com/mna/tangle/lang/token"

// state is the tokenizer's internal sub-state, entered for the duration of
// a single call to Next and discarded afterwards — the Lexer itself carries
// no state across calls beyond the cursor position, so it can be restarted
// or resumed from any byte offset.
type state int

const (
	stStart state = iota
	stTrivial
	stUnknown
	stWord
)

// Lexer is a pull-style tokenizer over a fixed byte buffer.
type Lexer struct {
	src []byte
	pos int
}

// New returns a Lexer positioned at the start of src.
func New(src []byte) *Lexer {
	return &Lexer{src: src}
}

// Pos returns the current cursor byte offset.
func (l *Lexer) Pos() int { return l.pos }

// Seek repositions the cursor to offset, which must be a valid offset
// (0 <= offset <= len(src)) previously produced by this Lexer (e.g. a
// Token.Start), so Next can be resumed mid-buffer.
func (l *Lexer) Seek(offset int) { l.pos = offset }

// LocationFrom computes the 1-based line/column of offset, scanning forward
// from base. See token.LocationFrom for the amortized-O(1) contract base
// must satisfy.
func (l *Lexer) LocationFrom(base token.Base, offset int) token.Location {
	return token.LocationFrom(l.src, base, offset)
}

// Next returns the next token in the buffer. Once the cursor reaches the end
// of the buffer, every subsequent call returns an EOF token at that offset.
func (l *Lexer) Next() token.Token {
	start := l.pos
	if start >= len(l.src) {
		return token.Token{Tag: token.EOF, Start: start, End: start}
	}

	c := l.src[start]
	switch {
	case c == '\n':
		return l.run(stTrivial, start, token.NEWLINE, func(b byte) bool { return b == '\n' })
	case c == ' ' || c == '\t':
		return l.run(stTrivial, start, token.SPACE, func(b byte) bool { return b == ' ' || b == '\t' })
	case c == '-':
		return l.run(stTrivial, start, token.LINE, func(b byte) bool { return b == '-' })
	case c == '#':
		return l.single(start, token.HASH)
	case c == ':':
		return l.single(start, token.COLON)
	case c == '|':
		return l.single(start, token.PIPE)
	case c == '<':
		return l.single(start, token.L_ANGLE)
	case c == '>':
		return l.single(start, token.R_ANGLE)
	case c == '{':
		return l.single(start, token.L_BRACE)
	case c == '}':
		return l.single(start, token.R_BRACE)
	case c == '[':
		return l.single(start, token.L_BRACKET)
	case c == ']':
		return l.single(start, token.R_BRACKET)
	case c == '(':
		return l.single(start, token.L_PAREN)
	case c == ')':
		return l.single(start, token.R_PAREN)
	case isWordStart(c):
		return l.run(stWord, start, token.WORD, isWordContinuation)
	default:
		return l.run(stUnknown, start, token.UNKNOWN, isUnknownContinuation)
	}
}

func (l *Lexer) single(start int, tag token.Tag) token.Token {
	l.pos = start + 1
	return token.Token{Tag: tag, Start: start, End: l.pos}
}

// run consumes the run of bytes for which accept returns true, starting at
// start (which already satisfies accept, or is the trivial/word/unknown
// class's trigger byte), and returns the resulting token. The state
// parameter documents which sub-state this run belongs to; it has no
// runtime effect beyond readability, since the accept predicate alone
// determines the run's extent.
func (l *Lexer) run(_ state, start int, tag token.Tag, accept func(byte) bool) token.Token {
	i := start + 1
	for i < len(l.src) && accept(l.src[i]) {
		i++
	}
	l.pos = i
	return token.Token{Tag: tag, Start: start, End: i}
}

// isWordStart reports whether c can begin a WORD token. '#' and '-' are
// deliberately excluded even though they are valid word-continuation bytes:
// as the first byte of a token they are claimed by the single-byte HASH
// token and the trivial LINE run, respectively (see Next's dispatch order).
func isWordStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '+' || c == '\'' || c == '_'
}

// isWordContinuation reports whether c may extend an already-started WORD
// token, per spec: [a-zA-Z#+\-'_].
func isWordContinuation(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		c == '#' || c == '+' || c == '-' || c == '\'' || c == '_'
}

// isUnknownContinuation reports whether c should be swallowed into an
// in-progress UNKNOWN run. The run stops at any byte that would otherwise
// dispatch to one of Next's own branches, so UNKNOWN only ever covers bytes
// that genuinely have no structural meaning to the grammar.
func isUnknownContinuation(c byte) bool {
	switch c {
	case '\n', ' ', '\t', '-', '#', ':', '|', '<', '>', '{', '}', '[', ']', '(', ')':
		return false
	}
	return !isWordStart(c)
}
