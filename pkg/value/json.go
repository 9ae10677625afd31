package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire format: a single-key envelope object per variant.
//
//	{"text": "..."}
//	{"list": [ ... ]}
//	{"error": "..."}
//
// Decode(Marshal(v)) yields a value equal to v for every well-formed value.

type textEnvelope struct {
	Text string `json:"text"`
}

type listEnvelope struct {
	List []json.RawMessage `json:"list"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(textEnvelope{Text: string(t)})
}

func (l List) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, len(l))
	for i, v := range l {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		items[i] = raw
	}
	return json.Marshal(listEnvelope{List: items})
}

func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorEnvelope{Error: string(e)})
}

// Marshal serializes a value to its envelope form.
func Marshal(v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("value is nil")
	}
	return json.Marshal(v)
}

// Decode parses the envelope form back into a Value.
func Decode(data []byte) (Value, error) {
	var probe map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&probe); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}

	if raw, ok := probe["text"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode text value: %w", err)
		}
		return Text(s), nil
	}

	if raw, ok := probe["list"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode list value: %w", err)
		}
		list := make(List, len(items))
		for i, item := range items {
			v, err := Decode(item)
			if err != nil {
				return nil, fmt.Errorf("decode list element %d: %w", i, err)
			}
			list[i] = v
		}
		return list, nil
	}

	if raw, ok := probe["error"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode error value: %w", err)
		}
		return Error(s), nil
	}

	return nil, fmt.Errorf("decode value: no text, list, or error key")
}
