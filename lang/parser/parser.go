// Package parser lowers one literate source document into an object.Object:
// a flat bytecode program plus the symbol/adjacency/file tables the linker
// consumes (spec.md §4.2). Unlike the teacher's three-stage ast -> resolver
// -> compiler split, tangle block bodies are opaque text, so parsing and
// codegen happen in the same pass — there is no sub-expression syntax to
// build an AST for.
package parser

import (
	"bytes"
	"strings"

	"github.com/mna/tangle/lang/config"
	"github.com/mna/tangle/lang/lexer"
	"github.com/mna/tangle/lang/object"
	"github.com/mna/tangle/lang/token"
)

// Parse lowers src (the contents of the document named name) into an Object.
// cfg's Delimiter, if set, overrides every block's own esc: spec; its
// AllowAbsolutePaths governs file: path validation.
func Parse(cfg config.Config, name string, src []byte) (*object.Object, error) {
	p := &parser{
		cfg:  cfg,
		src:  src,
		lx:   lexer.New(src),
		obj:  object.New(name, src),
		base: token.Base{Line: 1, Column: 1},
	}
	p.advance()
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.obj, nil
}

type parser struct {
	cfg config.Config
	src []byte
	lx  *lexer.Lexer
	obj *object.Object

	tok  token.Token
	base token.Base
}

func (p *parser) advance() { p.tok = p.lx.Next() }

func (p *parser) text(tok token.Token) string { return string(p.src[tok.Start:tok.End]) }

func (p *parser) locate(tok token.Token) token.Location {
	loc := p.lx.LocationFrom(p.base, tok.Start)
	p.base = token.Base{Offset: tok.Start, Line: loc.Line, Column: loc.Column}
	return loc
}

func (p *parser) errf(kind Kind, tok token.Token) error {
	return &Error{Kind: kind, Location: p.locate(tok), Token: tok}
}

// run implements the top-level loop (spec.md §4.2.3): skip until a blank
// line, require a four-space indent, then try a header. A block that does
// not start with "lang" reports ErrMissingLanguageSpec, which run treats as
// "not a literate block" rather than a fatal error: the surrounding phase-1
// skip already carries the cursor forward to the next blank line regardless
// of what the skipped line contained, so no separate skip step is needed.
func (p *parser) run() error {
	for {
		for p.tok.Tag != token.EOF && !(p.tok.Tag == token.NEWLINE && p.tok.Len() >= 2) {
			p.advance()
		}
		if p.tok.Tag == token.EOF {
			return nil
		}
		p.advance() // consume the blank-line newline; now at the start of the next line

		if p.tok.Tag != token.SPACE || p.tok.Len() != 4 {
			continue // no four-space indent here: not a candidate block
		}
		spaceTok := p.tok
		p.advance()

		err := p.block(spaceTok.Start)
		switch {
		case err == nil:
		case IsMissingLanguageSpec(err):
		default:
			return err
		}
	}
}

// block parses one header (spec.md §4.2.1), its division line, the required
// blank line, and its body (§4.2.2), and performs end-of-block codegen.
// lineStart is the byte offset of the header line's leading four-space
// indent.
func (p *parser) block(lineStart int) error {
	if p.tok.Tag != token.WORD || p.text(p.tok) != "lang" {
		return p.errf(ErrMissingLanguageSpec, p.tok)
	}
	headerLoc := p.locate(token.Token{Start: lineStart, End: lineStart})
	p.advance()

	if err := p.expectColon(); err != nil {
		return err
	}
	if err := p.expectSpace1(); err != nil {
		return err
	}
	if p.tok.Tag != token.WORD {
		return p.errf(ErrExpectedWord, p.tok)
	}
	p.advance() // language name; carried nowhere, it has no codegen effect

	if err := p.expectSpace1(); err != nil {
		return err
	}
	if p.tok.Tag != token.WORD || p.text(p.tok) != "esc" {
		return p.errf(ErrExpectedWord, p.tok)
	}
	p.advance()
	if err := p.expectColon(); err != nil {
		return err
	}
	if err := p.expectSpace1(); err != nil {
		return err
	}

	open, closeDelim, err := p.escSpec()
	if err != nil {
		return err
	}
	if err := p.expectSpace1(); err != nil {
		return err
	}

	tgt, err := p.target()
	if err != nil {
		return err
	}

	headerEnd := p.tok.Start
	if err := p.expectNewline(); err != nil {
		return err
	}

	wantDashes := headerEnd - lineStart - 4
	if p.tok.Tag != token.SPACE || p.tok.Len() != 4 {
		return p.errf(ErrInvalidDivisionLine, p.tok)
	}
	p.advance()
	if p.tok.Tag != token.LINE || int(p.tok.Len()) != wantDashes {
		return p.errf(ErrInvalidDivisionLine, p.tok)
	}
	p.advance()

	if !(p.tok.Tag == token.NEWLINE && p.tok.Len() >= 2) {
		return p.errf(ErrMissingBlankAfterHeader, p.tok)
	}
	p.advance()

	if ov, cv, ok := p.cfg.Delimiter.OpenClose(); ok {
		open, closeDelim = ov, cv
	}

	return p.body(tgt, headerLoc, open, closeDelim)
}

func (p *parser) expectSpace1() error {
	if p.tok.Tag != token.SPACE || p.tok.Len() != 1 {
		return p.errf(ErrExpectedSingleSpace, p.tok)
	}
	p.advance()
	return nil
}

func (p *parser) expectColon() error {
	if p.tok.Tag != token.COLON {
		return p.errf(ErrExpectedColon, p.tok)
	}
	p.advance()
	return nil
}

func (p *parser) expectNewline() error {
	if p.tok.Tag != token.NEWLINE {
		return p.errf(ErrExpectedNewline, p.tok)
	}
	p.advance()
	return nil
}

// escSpec parses `"none" | OpenDelim CloseDelim` and returns the delimiter
// byte sequences (empty strings for "none").
func (p *parser) escSpec() (open, closeDelim string, err error) {
	if p.tok.Tag == token.WORD && p.text(p.tok) == "none" {
		p.advance()
		return "", "", nil
	}

	openTag := p.tok.Tag
	var openByte byte
	switch openTag {
	case token.L_ANGLE:
		openByte = '<'
	case token.L_BRACE:
		openByte = '{'
	case token.L_BRACKET:
		openByte = '['
	case token.L_PAREN:
		openByte = '('
	default:
		return "", "", p.errf(ErrInvalidEscSpec, p.tok)
	}

	n := 0
	for p.tok.Tag == openTag {
		n++
		p.advance()
	}

	closeTag, closeByte := matchingClose(openTag)
	m := 0
	closeStart := p.tok
	for p.tok.Tag == closeTag {
		m++
		p.advance()
	}
	if m != n {
		return "", "", p.errf(ErrMismatchedDelimiterLength, closeStart)
	}

	return strings.Repeat(string(openByte), n), strings.Repeat(string(closeByte), m), nil
}

func matchingClose(open token.Tag) (token.Tag, byte) {
	switch open {
	case token.L_ANGLE:
		return token.R_ANGLE, '>'
	case token.L_BRACE:
		return token.R_BRACE, '}'
	case token.L_BRACKET:
		return token.R_BRACKET, ']'
	case token.L_PAREN:
		return token.R_PAREN, ')'
	}
	return token.ILLEGAL, 0
}

// target is the parsed `file:`/`tag:` clause of a header.
type target struct {
	kind               string // "file" or "tag"
	name               string
	nameStart, nameEnd int // byte span of the name within the source text
}

func (p *parser) target() (target, error) {
	if p.tok.Tag != token.WORD {
		return target{}, p.errf(ErrExpectedTarget, p.tok)
	}
	word := p.text(p.tok)

	switch word {
	case "file":
		p.advance()
		if err := p.expectColon(); err != nil {
			return target{}, err
		}
		if err := p.expectSpace1(); err != nil {
			return target{}, err
		}
		return p.path()

	case "tag":
		p.advance()
		if err := p.expectColon(); err != nil {
			return target{}, err
		}
		if err := p.expectSpace1(); err != nil {
			return target{}, err
		}
		if p.tok.Tag != token.HASH {
			return target{}, p.errf(ErrExpectedHash, p.tok)
		}
		p.advance()
		if p.tok.Tag != token.WORD {
			return target{}, p.errf(ErrExpectedWord, p.tok)
		}
		t := target{kind: "tag", name: p.text(p.tok), nameStart: p.tok.Start, nameEnd: p.tok.End}
		p.advance()
		return t, nil

	default:
		return target{}, p.errf(ErrExpectedTarget, p.tok)
	}
}

// path captures the raw bytes from the current position to the end of the
// physical line as a file path (the lexer's WORD/UNKNOWN classes don't
// tokenize slashes and dots cleanly), validates it, and resyncs the lexer
// past it.
func (p *parser) path() (target, error) {
	start := p.tok.Start
	end := len(p.src)
	if nl := bytes.IndexByte(p.src[start:], '\n'); nl >= 0 {
		end = start + nl
	}
	pathStr := string(p.src[start:end])
	if err := p.validatePath(pathStr, token.Token{Start: start, End: end}); err != nil {
		return target{}, err
	}
	p.lx.Seek(end)
	p.advance()
	return target{kind: "file", name: pathStr, nameStart: start, nameEnd: end}, nil
}

func (p *parser) validatePath(path string, tok token.Token) error {
	if !p.cfg.AllowAbsolutePaths && (strings.HasPrefix(path, "/") || strings.HasPrefix(path, "~")) {
		return p.errf(ErrAbsolutePathNotAllowed, tok)
	}
	for _, bad := range []string{"../", `..\`, "./", `.\`} {
		idx := 0
		for {
			i := strings.Index(path[idx:], bad)
			if i < 0 {
				break
			}
			pos := idx + i
			if pos > 0 && path[pos-1] == '.' {
				idx = pos + 1 // a run of more than two dots (".../") is not a traversal
				continue
			}
			return p.errf(ErrPathTraversal, tok)
		}
	}
	return nil
}

// body parses the block's indented body lines (§4.2.2) and performs its
// codegen and end-of-block bookkeeping: the terminal-write trim, the
// required trailing blank line, and registration into the object's
// adjacency/file tables.
func (p *parser) body(tgt target, headerLoc token.Location, open, closeDelim string) error {
	entry := uint32(len(p.obj.Program))

	for p.tok.Tag == token.SPACE && p.tok.Len() >= 4 {
		lineStart := p.tok.Start
		contentStart := lineStart + 4
		lineEnd := len(p.src)
		if nl := bytes.IndexByte(p.src[contentStart:], '\n'); nl >= 0 {
			lineEnd = contentStart + nl
		}
		if err := p.emitBodyLine(lineStart, contentStart, lineEnd, open, closeDelim); err != nil {
			return err
		}
		p.lx.Seek(lineEnd + 1) // past the line's own newline, onto the next line
		p.advance()
	}

	p.finalizeBlock(entry)

	switch {
	case p.tok.Tag == token.EOF:
	case p.tok.Tag == token.NEWLINE:
		// the last body line's own newline was consumed with the line, so any
		// newline here is a blank line. Back up onto that line break so run
		// sees the whole blank-line run and can find the next block.
		p.lx.Seek(p.tok.Start - 1)
		p.advance()
	default:
		return p.errf(ErrMissingBlankAfterBlock, p.tok)
	}

	retIdx := p.obj.Emit(object.MakeRet(uint32(tgt.nameStart), uint16(tgt.nameEnd-tgt.nameStart)))

	switch tgt.kind {
	case "tag":
		if prior, ok := p.obj.Adjacent[tgt.name]; ok {
			// a same-object tag re-declaration threads the prior segment's exit
			// into this one's entry (module 0: same object). The chain keeps
			// the first segment's entry and takes this segment's ret as exit.
			p.obj.Program[prior.Exit] = object.MakeJmp(entry, 0, 0)
			p.obj.Adjacent[tgt.name] = object.Adjacency{Entry: prior.Entry, Exit: retIdx, Location: prior.Location}
			break
		}
		p.obj.Adjacent[tgt.name] = object.Adjacency{Entry: entry, Exit: retIdx, Location: headerLoc}
	case "file":
		if _, ok := p.obj.Files[tgt.name]; ok {
			return p.errf(ErrMultipleFilesSameName, token.Token{Start: tgt.nameStart, End: tgt.nameEnd})
		}
		p.obj.Files[tgt.name] = object.FileEntry{Entry: entry, Location: headerLoc}
	}
	return nil
}

// finalizeBlock applies the end-of-block codegen rule: strip a terminal
// zero-length write instruction, if present, and clear the nl field of the
// new last write (spec.md §4.2.2). entry is the program index the block
// started emitting at, so an empty body is a no-op.
func (p *parser) finalizeBlock(entry uint32) {
	if uint32(len(p.obj.Program)) == entry {
		return
	}
	last := len(p.obj.Program) - 1
	if p.obj.Program[last].Op == object.WRITE && p.obj.Program[last].Len() == 0 {
		p.obj.Program = p.obj.Program[:last]
		last--
	}
	if last >= 0 && uint32(last) >= entry && p.obj.Program[last].Op == object.WRITE {
		w := p.obj.Program[last]
		p.obj.Program[last] = object.MakeWrite(w.Start(), w.Len(), 0)
	}
}

// emitBodyLine lowers one (already indent-stripped) body line to
// instructions: a plain write if the block has no delimiter pair, or a
// write/call/write... sequence around each placeholder otherwise.
func (p *parser) emitBodyLine(lineStart, contentStart, lineEnd int, open, closeDelim string) error {
	if open == "" {
		p.obj.Emit(object.MakeWrite(uint32(contentStart), uint16(lineEnd-contentStart), 1))
		return nil
	}

	pos := contentStart
	for {
		rel := bytes.Index(p.src[pos:lineEnd], []byte(open))
		if rel < 0 {
			p.obj.Emit(object.MakeWrite(uint32(pos), uint16(lineEnd-pos), 1))
			return nil
		}
		delimStart := pos + rel
		if delimStart > pos {
			p.obj.Emit(object.MakeWrite(uint32(pos), uint16(delimStart-pos), 0))
		}

		nameStart := delimStart + len(open)
		i := nameStart
		for i < lineEnd && p.src[i] != ':' && p.src[i] != '|' && !hasPrefixAt(p.src, i, closeDelim) {
			i++
		}
		name := string(p.src[nameStart:i])
		if name == "" {
			return p.errf(ErrEmptyPlaceholderName, token.Token{Start: nameStart, End: nameStart})
		}
		pos = i

		if pos < lineEnd && p.src[pos] == ':' {
			end, err := p.skipCast(pos, lineEnd)
			if err != nil {
				return err
			}
			pos = end
		}

		if pos < lineEnd && p.src[pos] == '|' {
			cmdStart := pos + 1
			cmdEnd := cmdStart
			for cmdEnd < lineEnd && !hasPrefixAt(p.src, cmdEnd, closeDelim) {
				cmdEnd++
			}
			p.obj.Emit(object.MakeShell(uint32(cmdStart), 0, uint8(cmdEnd-cmdStart)))
			pos = cmdEnd
		}

		if !hasPrefixAt(p.src, pos, closeDelim) {
			return p.errf(ErrUnclosedDelimiter, token.Token{Start: delimStart, End: pos})
		}
		pos += len(closeDelim)

		// indent is measured from the body line's content start (the mandatory
		// four-space block indent is stripped and never counted), per S3.
		callIdx := p.obj.Emit(object.MakeCall(0, 0, uint16(delimStart-contentStart)))
		p.obj.RecordCallSite(name, callIdx)
	}
}

// skipCast validates a `:from(type)` cast clause starting at pos (the ':')
// and returns the offset just past its closing ')'. The cast has no codegen
// effect; tangle's sinks render text, not typed values.
func (p *parser) skipCast(pos, lineEnd int) (int, error) {
	start := pos
	pos++ // consume ':'
	wordStart := pos
	for pos < lineEnd && isAlnum(p.src[pos]) {
		pos++
	}
	if string(p.src[wordStart:pos]) != "from" {
		return 0, p.errf(ErrInvalidCastShape, token.Token{Start: start, End: pos})
	}
	if pos >= lineEnd || p.src[pos] != '(' {
		return 0, p.errf(ErrInvalidCastShape, token.Token{Start: start, End: pos})
	}
	pos++
	typeStart := pos
	for pos < lineEnd && p.src[pos] != ')' {
		pos++
	}
	if pos >= lineEnd || pos == typeStart {
		return 0, p.errf(ErrInvalidCastShape, token.Token{Start: start, End: pos})
	}
	return pos + 1, nil
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func hasPrefixAt(src []byte, i int, s string) bool {
	if s == "" || i+len(s) > len(src) {
		return false
	}
	return string(src[i:i+len(s)]) == s
}
