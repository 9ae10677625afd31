package transform

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/calveg/twine/pkg/value"
)

// Messages for failures represented as Error values.
const (
	inputErrorMessage     = "Input error"
	invalidPatternMessage = "Invalid pattern"
	invalidSliceMessage   = "Invalid slice bounds"
)

// Apply runs the transformer over a value and returns the result. It is
// total over well-formed inputs: it never panics, and every failure comes
// back as a value.Error.
//
// List inputs are mapped element-wise, preserving length and order, except
// for join which aggregates the whole list (nested levels included) into one
// scalar. Error inputs propagate as Error("Input error") for every
// operation.
func Apply(t Transformer, v value.Value) value.Value {
	switch in := v.(type) {
	case value.Text:
		return applyText(t, string(in))
	case value.List:
		if t.Op == OpJoin {
			return joinList(t.Separator, in)
		}
		out := make(value.List, len(in))
		for i, el := range in {
			out[i] = Apply(t, el)
		}
		return out
	case value.Error:
		return value.Error(inputErrorMessage)
	}
	return value.Error(inputErrorMessage)
}

// applyText is the per-operation leaf behavior for scalar text input.
func applyText(t Transformer, text string) value.Value {
	switch t.Op {
	case OpSplit:
		parts := strings.Split(text, t.Pattern)
		out := make(value.List, len(parts))
		for i, p := range parts {
			out[i] = value.Text(p)
		}
		return out

	case OpJoin:
		// Join only does real work on lists; on text it is the identity.
		return value.Text(text)

	case OpFind:
		re, err := regexp.Compile(t.Pattern)
		if err != nil {
			return value.Error(invalidPatternMessage)
		}
		matches := re.FindAllString(text, -1)
		out := make(value.List, len(matches))
		for i, m := range matches {
			out[i] = value.Text(m)
		}
		return out

	case OpReplace:
		re, err := regexp.Compile(t.Pattern)
		if err != nil {
			return value.Error(invalidPatternMessage)
		}
		return value.Text(re.ReplaceAllString(text, t.Replacer))

	case OpSlice:
		n := uint(len(text))
		from := min(t.From, n)
		to := min(t.To, n)
		if from > to {
			return value.Error(invalidSliceMessage)
		}
		return value.Text(text[from:to])

	case OpEncode:
		return encodeText(t.Encoding, text)

	case OpDecode:
		return decodeText(t.Encoding, text)

	case OpUppercase:
		return value.Text(strings.ToUpper(text))

	case OpLowercase:
		return value.Text(strings.ToLower(text))
	}

	return value.Error(fmt.Sprintf("Unknown operation: %s", t.Op))
}

func encodeText(enc Encoding, text string) value.Value {
	switch enc {
	case EncodingBase64:
		return value.Text(base64.StdEncoding.EncodeToString([]byte(text)))
	case EncodingBase64URLSafe:
		return value.Text(base64.URLEncoding.EncodeToString([]byte(text)))
	case EncodingURL:
		return value.Text(percentEncode(text))
	}
	return value.Error(fmt.Sprintf("Unknown encoding: %s", enc))
}

func decodeText(enc Encoding, text string) value.Value {
	switch enc {
	case EncodingBase64:
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return value.Error(err.Error())
		}
		return value.Text(lossyUTF8(raw))
	case EncodingBase64URLSafe:
		raw, err := base64.URLEncoding.DecodeString(text)
		if err != nil {
			return value.Error(err.Error())
		}
		return value.Text(lossyUTF8(raw))
	case EncodingURL:
		// PathUnescape keeps a literal "+" as "+"; percent-decoding only.
		decoded, err := url.PathUnescape(text)
		if err != nil {
			return value.Error(err.Error())
		}
		return value.Text(decoded)
	}
	return value.Error(fmt.Sprintf("Unknown encoding: %s", enc))
}

// percentEncode percent-encodes text per standard URL-encoding rules.
// Spaces become "%20", never "+".
func percentEncode(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// lossyUTF8 converts raw bytes to a string, replacing each invalid byte
// with the U+FFFD replacement character.
func lossyUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		b.WriteRune(r)
		raw = raw[size:]
	}
	return b.String()
}

// joinList performs the flatten walk: depth-first, left-to-right collection
// of every text leaf, joined with the separator. Any Error leaf aborts the
// walk and poisons the result.
func joinList(separator string, l value.List) value.Value {
	parts, ok := flatten(l, nil)
	if !ok {
		return value.Error(inputErrorMessage)
	}
	return value.Text(strings.Join(parts, separator))
}

func flatten(v value.Value, parts []string) ([]string, bool) {
	switch in := v.(type) {
	case value.Text:
		return append(parts, string(in)), true
	case value.List:
		for _, el := range in {
			var ok bool
			if parts, ok = flatten(el, parts); !ok {
				return nil, false
			}
		}
		return parts, true
	}
	return nil, false
}
