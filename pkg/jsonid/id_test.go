package jsonid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalNumberAndString(t *testing.T) {
	var body struct {
		A ID   `json:"a"`
		B ID   `json:"b"`
		C ID   `json:"c"`
		D []ID `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a": 12, "b": "34", "c": null, "d": [1, "999", "x"]}`), &body)
	require.NoError(t, err)

	n, ok := body.A.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)

	n, ok = body.B.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(34), n)

	assert.True(t, body.C.IsZero())
	assert.Equal(t, []ID{"1", "999", "x"}, body.D)

	_, ok = body.D[2].Int64()
	assert.False(t, ok)
}

func TestUnmarshalRejectsObjects(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}

func TestMarshal(t *testing.T) {
	out, err := json.Marshal([]ID{"7", "user-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `[7, "user-1"]`, string(out))
}

func TestIsZero(t *testing.T) {
	var body struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 0, "b": "", "c": 10}`), &body))

	assert.True(t, body.A.IsZero())
	assert.True(t, body.B.IsZero())
	assert.False(t, body.C.IsZero())
	assert.False(t, ID("user-0").IsZero())
}
