package builtin

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

var fence = []byte("---")

// Document is a resource split into front matter and body.
type Document struct {
	Meta map[string]any
	Body []byte
}

// ParseDocument splits data into YAML front matter and body.
//
// Front matter is only recognised when the first line is exactly "---"; it
// ends at the next line that is exactly "---". Without front matter the whole
// input is the body.
func ParseDocument(data []byte) (Document, error) {
	doc := Document{Meta: map[string]any{}, Body: data}

	first, rest, ok := cutLine(data)
	if !ok || !bytes.Equal(bytes.TrimRight(first, "\r"), fence) {
		return doc, nil
	}

	var header []byte
	body := rest
	for {
		line, tail, more := cutLine(body)
		if bytes.Equal(bytes.TrimRight(line, "\r"), fence) {
			header = rest[:len(rest)-len(body)]
			body = tail
			break
		}
		if !more {
			return doc, fmt.Errorf("front matter: missing closing %q", fence)
		}
		body = tail
	}

	if err := yaml.Unmarshal(header, &doc.Meta); err != nil {
		return doc, fmt.Errorf("front matter: %w", err)
	}
	if doc.Meta == nil {
		doc.Meta = map[string]any{}
	}
	doc.Body = body
	return doc, nil
}

// cutLine splits off the first line. more is false when data held no newline.
func cutLine(data []byte) (line, rest []byte, more bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return data, nil, false
	}
	return data[:i], data[i+1:], true
}

// String returns the front matter field key as a string.
func (d Document) String(key string) (string, bool) {
	switch v := d.Meta[key].(type) {
	case string:
		return v, true
	case nil:
		return "", false
	case time.Time:
		return v.Format(time.DateOnly), true
	default:
		return fmt.Sprint(v), true
	}
}

// Title returns the "title" field, or fallback.
func (d Document) Title(fallback string) string {
	if s, ok := d.String("title"); ok && s != "" {
		return s
	}
	return fallback
}

// Strings returns a field holding either a single value or a list as a
// slice of strings.
func (d Document) Strings(key string) []string {
	switch v := d.Meta[key].(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if e == nil {
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		s, _ := d.String(key)
		return []string{s}
	}
}
