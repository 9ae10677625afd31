// Package transform implements the closed set of text transformation
// operations applied to values flowing between pipeline nodes.
//
// Every operation is a pure function over a value.Value. List inputs are
// mapped element-wise (join is the one exception: it collapses a list into a
// scalar), Error inputs poison the output, and Text inputs get the
// operation-specific leaf behavior. Apply is total: every failure mode comes
// back as a value.Error, never a panic.
package transform

import "fmt"

// Op names a transformation operation. The set is closed: dispatch is an
// exhaustive switch, and an unrecognized op (e.g. from a document written by
// a newer version) resolves to an Error value rather than failing hard.
type Op string

const (
	OpSplit     Op = "split"
	OpJoin      Op = "join"
	OpFind      Op = "find"
	OpReplace   Op = "replace"
	OpSlice     Op = "slice"
	OpEncode    Op = "encode"
	OpDecode    Op = "decode"
	OpUppercase Op = "uppercase"
	OpLowercase Op = "lowercase"
)

// Encoding selects the codec for encode/decode operations.
type Encoding string

const (
	EncodingBase64        Encoding = "base64"
	EncodingBase64URLSafe Encoding = "base64url"
	EncodingURL           Encoding = "url"
)

// Transformer is one operation with its parameters. Only the fields relevant
// to the op are set; the zero values of the rest are inert. The flat shape
// keeps JSON round-trips trivial and equality a plain ==.
type Transformer struct {
	Op        Op       `json:"op"`
	Pattern   string   `json:"pattern,omitempty"`   // split (literal), find/replace (regex)
	Separator string   `json:"separator,omitempty"` // join
	Replacer  string   `json:"replacer,omitempty"`  // replace ($1, ${name} capture refs)
	From      uint     `json:"from,omitempty"`      // slice, byte offset
	To        uint     `json:"to,omitempty"`        // slice, byte offset
	Encoding  Encoding `json:"encoding,omitempty"`  // encode/decode
}

// Split splits text on every non-overlapping occurrence of the literal
// pattern. An empty pattern splits after each UTF-8 rune (Go convention).
func Split(pattern string) Transformer {
	return Transformer{Op: OpSplit, Pattern: pattern}
}

// Join flattens a list depth-first and joins the collected text leaves with
// the separator. On scalar text input it is the identity.
func Join(separator string) Transformer {
	return Transformer{Op: OpJoin, Separator: separator}
}

// Find returns every non-overlapping regex match as a list of text values.
func Find(pattern string) Transformer {
	return Transformer{Op: OpFind, Pattern: pattern}
}

// Replace substitutes all non-overlapping regex matches with the replacer,
// which may reference capture groups using $1 or ${name}.
func Replace(pattern, replacer string) Transformer {
	return Transformer{Op: OpReplace, Pattern: pattern, Replacer: replacer}
}

// Slice takes the byte range [from, to) of the text. Bounds clamp
// independently to the text length; from > to after clamping is reported as
// an Error value. Offsets are bytes, not runes: slicing inside a multibyte
// rune produces the raw byte substring unchecked.
func Slice(from, to uint) Transformer {
	return Transformer{Op: OpSlice, From: from, To: to}
}

// Encode encodes text with the given codec.
func Encode(encoding Encoding) Transformer {
	return Transformer{Op: OpEncode, Encoding: encoding}
}

// Decode decodes text with the given codec. Malformed input yields an Error
// value carrying the decoder's message.
func Decode(encoding Encoding) Transformer {
	return Transformer{Op: OpDecode, Encoding: encoding}
}

// Uppercase maps the text to upper case, Unicode-aware.
func Uppercase() Transformer {
	return Transformer{Op: OpUppercase}
}

// Lowercase maps the text to lower case, Unicode-aware.
func Lowercase() Transformer {
	return Transformer{Op: OpLowercase}
}

// validOps is the recognized operation set.
var validOps = map[Op]bool{
	OpSplit:     true,
	OpJoin:      true,
	OpFind:      true,
	OpReplace:   true,
	OpSlice:     true,
	OpEncode:    true,
	OpDecode:    true,
	OpUppercase: true,
	OpLowercase: true,
}

// validEncodings is the recognized codec set.
var validEncodings = map[Encoding]bool{
	EncodingBase64:        true,
	EncodingBase64URLSafe: true,
	EncodingURL:           true,
}

// Validate checks that the transformer names a known operation and, for
// encode/decode, a known encoding. Apply tolerates invalid transformers by
// returning Error values; Validate exists so definitions can be rejected
// up front.
func (t Transformer) Validate() error {
	if !validOps[t.Op] {
		return fmt.Errorf("unknown operation %q", t.Op)
	}
	if t.Op == OpEncode || t.Op == OpDecode {
		if !validEncodings[t.Encoding] {
			return fmt.Errorf("unknown encoding %q", t.Encoding)
		}
	}
	return nil
}

// Label returns a human-readable name for the operation, used for node
// titles in diagrams and listings.
func (t Transformer) Label() string {
	switch t.Op {
	case OpSplit:
		return "Split"
	case OpJoin:
		return "Join"
	case OpFind:
		return "Find"
	case OpReplace:
		return "Replace"
	case OpSlice:
		return "Slice"
	case OpEncode:
		switch t.Encoding {
		case EncodingBase64URLSafe:
			return "Base64 URL Safe Encode"
		case EncodingURL:
			return "URL Encode"
		default:
			return "Base64 Encode"
		}
	case OpDecode:
		switch t.Encoding {
		case EncodingBase64URLSafe:
			return "Base64 URL Safe Decode"
		case EncodingURL:
			return "URL Decode"
		default:
			return "Base64 Decode"
		}
	case OpUppercase:
		return "Uppercase"
	case OpLowercase:
		return "Lowercase"
	}
	return string(t.Op)
}
