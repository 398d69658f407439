package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMapKeepsInsertionOrder(t *testing.T) {
	var m OrderedMap[int]
	m.Set("zeta", 1)
	m.Set("alpha", 2)
	m.Set("mid", 3)
	m.Set("zeta", 4)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
	v, ok := m.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, 4, v)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":4,"alpha":2,"mid":3}`, string(data))
}

func TestOrderedMapDecodePreservesDocumentOrder(t *testing.T) {
	var m OrderedMap[any]
	require.NoError(t, json.Unmarshal([]byte(`{"b": 1, "a": "x", "c": {"k": true}}`), &m))

	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())
	v, _ := m.Get("b")
	assert.Equal(t, json.Number("1"), v)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":"x","c":{"k":true}}`, string(out))
}

func TestOrderedMapNullAndInvalid(t *testing.T) {
	var m OrderedMap[int]
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Equal(t, 0, m.Len())

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &m))
}

func TestOrderedMapZeroValueMarshal(t *testing.T) {
	var m OrderedMap[string]
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
