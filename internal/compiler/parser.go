package compiler

import (
	"fmt"
	"strings"
)

// ParseError reports a problem with a graph description at a byte offset.
type ParseError struct {
	Message  string
	Position int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("graph description: %s (at offset %d)", e.Message, e.Position)
}

func parseErrorf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Position: pos}
}

type label struct {
	name string
	pos  int
}

type filterSpec struct {
	name    string
	args    string
	pos     int
	inputs  []label
	outputs []label
}

type chainSpec struct {
	filters []filterSpec
}

type parser struct {
	src string
	pos int
}

// parse splits a description into chains of filters with their labels.
func parse(desc string) ([]chainSpec, error) {
	p := &parser{src: desc}
	p.skipSpace()
	if p.eof() {
		return nil, parseErrorf(0, "empty graph description")
	}

	var chains []chainSpec
	for {
		chain, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)

		p.skipSpace()
		if p.eof() {
			return chains, nil
		}
		if p.peek() != ';' {
			return nil, parseErrorf(p.pos, "expected ';' or ',' but found %q", p.peek())
		}
		p.pos++
		p.skipSpace()
		if p.eof() {
			// trailing ';' is tolerated
			return chains, nil
		}
	}
}

func (p *parser) parseChain() (chainSpec, error) {
	var chain chainSpec
	for {
		f, err := p.parseFilter()
		if err != nil {
			return chain, err
		}
		chain.filters = append(chain.filters, f)

		p.skipSpace()
		if p.eof() || p.peek() != ',' {
			return chain, nil
		}
		p.pos++
	}
}

func (p *parser) parseFilter() (filterSpec, error) {
	var f filterSpec

	inputs, err := p.parseLabels()
	if err != nil {
		return f, err
	}
	f.inputs = inputs

	p.skipSpace()
	f.pos = p.pos
	start := p.pos
	for !p.eof() && isNameChar(p.peek()) {
		p.pos++
	}
	f.name = p.src[start:p.pos]
	if f.name == "" {
		if p.eof() {
			return f, parseErrorf(p.pos, "expected filter name at end of description")
		}
		return f, parseErrorf(p.pos, "expected filter name but found %q", p.peek())
	}

	p.skipSpace()
	if !p.eof() && p.peek() == '=' {
		p.pos++
		args, err := p.parseArgs()
		if err != nil {
			return f, err
		}
		f.args = args
	}

	outputs, err := p.parseLabels()
	if err != nil {
		return f, err
	}
	f.outputs = outputs
	return f, nil
}

// parseArgs reads raw arguments up to the next unquoted separator. Quotes and
// escapes are kept for the option parser.
func (p *parser) parseArgs() (string, error) {
	start := p.pos
	quoted := false
	for !p.eof() {
		c := p.peek()
		if c == '\\' {
			if p.pos+1 >= len(p.src) {
				return "", parseErrorf(p.pos, "dangling escape")
			}
			p.pos += 2
			continue
		}
		if c == '\'' {
			quoted = !quoted
		} else if !quoted && (c == ',' || c == ';' || c == '[') {
			break
		}
		p.pos++
	}
	if quoted {
		return "", parseErrorf(start, "unterminated quote in filter arguments")
	}
	return strings.TrimSpace(p.src[start:p.pos]), nil
}

func (p *parser) parseLabels() ([]label, error) {
	var labels []label
	for {
		p.skipSpace()
		if p.eof() || p.peek() != '[' {
			return labels, nil
		}
		open := p.pos
		p.pos++
		end := strings.IndexByte(p.src[p.pos:], ']')
		if end < 0 {
			return nil, parseErrorf(open, "unterminated label")
		}
		name := strings.TrimSpace(p.src[p.pos : p.pos+end])
		if name == "" {
			return nil, parseErrorf(open, "empty label")
		}
		labels = append(labels, label{name: name, pos: open})
		p.pos += end + 1
	}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() byte { return p.src[p.pos] }

func isNameChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
