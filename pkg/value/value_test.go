package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual_Text(t *testing.T) {
	assert.True(t, Text("abc").Equal(Text("abc")))
	assert.False(t, Text("abc").Equal(Text("abd")))
	assert.False(t, Text("abc").Equal(Error("abc")))
	assert.False(t, Text("abc").Equal(List{Text("abc")}))
}

func TestEqual_List(t *testing.T) {
	a := List{Text("a"), List{Text("b"), Error("e")}}
	b := List{Text("a"), List{Text("b"), Error("e")}}
	assert.True(t, a.Equal(b))

	assert.False(t, a.Equal(List{Text("a")}))
	assert.False(t, a.Equal(List{Text("a"), List{Text("b"), Error("x")}}))
	assert.True(t, List{}.Equal(List{}))
}

func TestEqual_Error(t *testing.T) {
	assert.True(t, Error("boom").Equal(Error("boom")))
	assert.False(t, Error("boom").Equal(Text("boom")))
}

func TestMaxStrLen(t *testing.T) {
	assert.Equal(t, 5, Text("hello").MaxStrLen())
	assert.Equal(t, 0, List{}.MaxStrLen())
	assert.Equal(t, 4, Error("oops").MaxStrLen())

	nested := List{Text("ab"), List{Text("abcdef"), Error("x")}, Text("cd")}
	assert.Equal(t, 6, nested.MaxStrLen())
}

func TestString(t *testing.T) {
	assert.Equal(t, "hello", Text("hello").String())
	assert.Equal(t, "oops", Error("oops").String())
	assert.Equal(t, "[]", List{}.String())
	assert.Equal(t, "[a, [b, c], d]",
		List{Text("a"), List{Text("b"), Text("c")}, Text("d")}.String())
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindText, Text("").Kind())
	assert.Equal(t, KindList, List{}.Kind())
	assert.Equal(t, KindError, Error("").Kind())
	assert.Equal(t, "text", KindText.String())
	assert.Equal(t, "list", KindList.String())
	assert.Equal(t, "error", KindError.String())
}

func TestJSONRoundTrip(t *testing.T) {
	cases := []Value{
		Text(""),
		Text("hello world"),
		Text("héllo ✓"),
		Error("Invalid pattern"),
		List{},
		List{Text("a"), Text("b")},
		List{Text("a"), List{Text("b"), Error("e"), List{}}, Text("c")},
	}
	for _, v := range cases {
		data, err := Marshal(v)
		require.NoError(t, err)

		got, err := Decode(data)
		require.NoError(t, err, "decoding %s", data)
		assert.True(t, v.Equal(got), "round-trip mismatch: %s", data)
	}
}

func TestJSONWireFormat(t *testing.T) {
	data, err := Marshal(List{Text("a"), Error("e")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"list":[{"text":"a"},{"error":"e"}]}`, string(data))
}

func TestDecode_Malformed(t *testing.T) {
	for _, raw := range []string{``, `42`, `"text"`, `{}`, `{"other":1}`, `{"list":"nope"}`} {
		_, err := Decode([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}
