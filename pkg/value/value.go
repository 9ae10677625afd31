// Package value defines the tagged-union data type flowing between pipeline
// nodes: scalar text, an ordered list of values, or an error marker.
//
// Values are immutable by convention: no operation in this module mutates a
// Value in place, and transforms always produce new values. Error is
// "poisoned" data: it carries a message and flows through the pipeline like
// any other value so failures surface where they happened.
package value

import (
	"strings"
)

// Kind discriminates the three Value variants.
type Kind int

const (
	KindText Kind = iota
	KindList
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Value is the closed union of Text, List, and Error.
// The variant set is fixed; isValue keeps it sealed to this package.
type Value interface {
	Kind() Kind

	// Equal reports structural equality: same variant, same fields,
	// element-wise for lists.
	Equal(other Value) bool

	// MaxStrLen returns the maximum byte length of any Text or Error leaf,
	// 0 for an empty list. Derived property, used to bound range controls.
	MaxStrLen() int

	// String renders the value for display. Text and Error render as their
	// raw string, List as bracketed comma-separated elements. Not a
	// serialization format; see Marshal/Decode for round-tripping.
	String() string

	isValue()
}

// Text is a scalar sequence of bytes with UTF-8 semantics.
// Offsets into a Text (as used by the slice operation) are byte offsets.
type Text string

// List is an ordered sequence of values. Order is significant and preserved.
// Lists may be empty and may nest to any depth.
type List []Value

// Error is a terminal marker carrying a human-readable message.
type Error string

func (Text) isValue()  {}
func (List) isValue()  {}
func (Error) isValue() {}

func (Text) Kind() Kind  { return KindText }
func (List) Kind() Kind  { return KindList }
func (Error) Kind() Kind { return KindError }

func (t Text) Equal(other Value) bool {
	o, ok := other.(Text)
	return ok && t == o
}

func (l List) Equal(other Value) bool {
	o, ok := other.(List)
	if !ok || len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (e Error) Equal(other Value) bool {
	o, ok := other.(Error)
	return ok && e == o
}

func (t Text) MaxStrLen() int { return len(t) }

func (l List) MaxStrLen() int {
	max := 0
	for _, v := range l {
		if n := v.MaxStrLen(); n > max {
			max = n
		}
	}
	return max
}

func (e Error) MaxStrLen() int { return len(e) }

func (t Text) String() string { return string(t) }

func (l List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (e Error) String() string { return string(e) }
