package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	payload := []byte(`{"name":"Token #1"}`)

	first := New(payload)
	second := New(payload)

	assert.Equal(t, first, second)
	assert.Len(t, first.String(), Size*2)
	assert.Equal(t, strings.ToLower(first.String()), first.String())
}

func TestNewDistinguishesPayloads(t *testing.T) {
	a := New([]byte(`{"name":"Token #1"}`))
	b := New([]byte(`{"name":"Token #2"}`))

	assert.NotEqual(t, a, b)
}

func TestNewKnownVectors(t *testing.T) {
	// keccak-256 test vectors
	assert.Equal(t,
		Fingerprint("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		New(nil))
	assert.Equal(t,
		Fingerprint("1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8"),
		New([]byte("hello")))
}

func TestFromJSONCanonicalizes(t *testing.T) {
	type doc struct {
		Zeta  string `json:"zeta"`
		Alpha int    `json:"alpha"`
	}

	fp, canonical, err := FromJSON(doc{Zeta: "z", Alpha: 1})
	require.NoError(t, err)

	// Keys are sorted regardless of struct field order
	assert.Equal(t, `{"alpha":1,"zeta":"z"}`, string(canonical))
	assert.Equal(t, New(canonical), fp)
}

func TestFromJSONEquivalentDocumentsCollapse(t *testing.T) {
	first, _, err := FromJSON(map[string]any{"a": 1, "b": "x"})
	require.NoError(t, err)

	second, _, err := FromJSON(map[string]any{"b": "x", "a": 1})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFromJSONRejectsUnmarshalable(t *testing.T) {
	_, _, err := FromJSON(func() {})
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	valid := New([]byte("payload")).String()

	fp, err := Parse(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, fp.String())

	_, err = Parse("zzzz")
	assert.Error(t, err)

	_, err = Parse("deadbeef")
	assert.Error(t, err)
}
