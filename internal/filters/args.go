package filters

import (
	"fmt"
	"strconv"
	"strings"
)

// Options holds resolved filter options keyed by option name.
type Options map[string]string

// ParseOptions splits an ffmpeg-style argument string ("a:b:key=value") and
// maps positional values onto names in declaration order. Quotes (') and
// backslash escapes protect ':' and '=' inside values.
func ParseOptions(args string, names []string) (Options, error) {
	opts := make(Options)
	if strings.TrimSpace(args) == "" {
		return opts, nil
	}

	fields, err := splitArgs(args)
	if err != nil {
		return nil, err
	}

	position := 0
	for _, field := range fields {
		if key, value, ok := cutKeyValue(field); ok {
			if !contains(names, key) {
				return nil, fmt.Errorf("unknown option %q", key)
			}
			opts[key] = value
			continue
		}
		if position >= len(names) {
			return nil, fmt.Errorf("too many arguments: %q", args)
		}
		opts[names[position]] = field.text
		position++
	}
	return opts, nil
}

type argField struct {
	text string
	// eq is the index of the first unquoted '=' in text, or -1.
	eq int
}

func splitArgs(s string) ([]argField, error) {
	var (
		fields  []argField
		current strings.Builder
		eq      = -1
		quoted  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("dangling escape at end of %q", s)
			}
			i++
			current.WriteByte(s[i])
		case c == '\'':
			quoted = !quoted
		case c == ':' && !quoted:
			fields = append(fields, argField{text: current.String(), eq: eq})
			current.Reset()
			eq = -1
		case c == '=' && !quoted && eq < 0:
			eq = current.Len()
			current.WriteByte(c)
		default:
			current.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	fields = append(fields, argField{text: current.String(), eq: eq})
	return fields, nil
}

func cutKeyValue(f argField) (string, string, bool) {
	if f.eq <= 0 {
		return "", "", false
	}
	return f.text[:f.eq], f.text[f.eq+1:], true
}

func contains(names []string, key string) bool {
	for _, n := range names {
		if n == key {
			return true
		}
	}
	return false
}

// String returns the named option or def.
func (o Options) String(name, def string) string {
	if v, ok := o[name]; ok && v != "" {
		return v
	}
	return def
}

// Int parses the named option as an integer.
func (o Options) Int(name string, def int) (int, error) {
	v, ok := o[name]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option %s: %q is not an integer", name, v)
	}
	return n, nil
}

// Float parses the named option as a float.
func (o Options) Float(name string, def float64) (float64, error) {
	v, ok := o[name]
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("option %s: %q is not a number", name, v)
	}
	return f, nil
}

// Bool parses the named option as 0/1/true/false.
func (o Options) Bool(name string, def bool) (bool, error) {
	v, ok := o[name]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("option %s: %q is not a boolean", name, v)
	}
	return b, nil
}
