package engine

import (
	"fmt"
	"strings"
)

// Content is the answer payload an engine hands back. It is a closed union:
// Text, Parts, Structured or Opaque. A nil Content is an absent answer.
type Content interface {
	isContent()
}

// Text is plain answer text.
type Text string

// Parts is an ordered sequence of sub-results.
type Parts []Content

// Structured is an object carrying a nested textual payload.
type Structured struct {
	Payload Content
}

// Opaque is any other value. It renders with fmt's default format.
type Opaque struct {
	Value any
}

func (Text) isContent()       {}
func (Parts) isContent()      {}
func (Structured) isContent() {}
func (Opaque) isContent()     {}

// Coerce renders content as text. Parts are joined with newlines and
// Structured renders its payload, recursively.
func Coerce(c Content) string {
	switch v := c.(type) {
	case nil:
		return ""
	case Text:
		return string(v)
	case Parts:
		texts := make([]string, len(v))
		for i, p := range v {
			texts[i] = Coerce(p)
		}
		return strings.Join(texts, "\n")
	case Structured:
		return Coerce(v.Payload)
	case Opaque:
		if v.Value == nil {
			return ""
		}
		return fmt.Sprint(v.Value)
	default:
		return fmt.Sprint(v)
	}
}
