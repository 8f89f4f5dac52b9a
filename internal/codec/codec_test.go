package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/store"
)

type addTodo struct {
	Text string `json:"text"`
}

func (*addTodo) ActionType() string { return "todos/add" }

type toggleTodo struct {
	Index int `json:"index"`
}

func (*toggleTodo) ActionType() string { return "todos/toggle" }

type liar struct{}

func (*liar) ActionType() string { return "other" }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register("todos/add", func() store.Action { return &addTodo{} }))
	require.NoError(t, r.Register("todos/toggle", func() store.Action { return &toggleTodo{} }))
	return r
}

func TestEncodeTypedAction(t *testing.T) {
	obj, err := Encode(&addTodo{Text: "write <docs>"})
	require.NoError(t, err)
	assert.Equal(t, ir.Object{"type": ir.String("todos/add"), "text": ir.String("write <docs>")}, obj)

	data, err := EncodeJSON(&addTodo{Text: "a"})
	require.NoError(t, err)
	assert.Equal(t, `{"text":"a","type":"todos/add"}`, string(data))
}

func TestEncodeRecord(t *testing.T) {
	obj, err := Encode(store.Record{"type": "UP", "by": 2})
	require.NoError(t, err)
	assert.Equal(t, ir.Object{"type": ir.String("UP"), "by": ir.Int(2)}, obj)
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Encode(store.Record{"type": "X", "f": 1.5})
	assert.Error(t, err)
}

func TestDecodeTypedRoundTrip(t *testing.T) {
	r := testRegistry(t)

	obj, err := Encode(&toggleTodo{Index: 3})
	require.NoError(t, err)

	action, err := r.Decode(obj)
	require.NoError(t, err)
	assert.Equal(t, &toggleTodo{Index: 3}, action)
}

func TestDecodeUnknownFallsBackToRecord(t *testing.T) {
	r := testRegistry(t)

	action, err := r.DecodeJSON([]byte(`{"type":"UP","by":2}`))
	require.NoError(t, err)
	assert.Equal(t, store.Record{"type": "UP", "by": int64(2)}, action)
	assert.Equal(t, "UP", action.ActionType())
}

func TestDecodeNilRegistry(t *testing.T) {
	var r *Registry
	action, err := r.DecodeJSON([]byte(`{"type":"todos/add","text":"x"}`))
	require.NoError(t, err)
	assert.IsType(t, store.Record{}, action)
	assert.Nil(t, r.Types())
}

func TestDecodeErrors(t *testing.T) {
	r := testRegistry(t)
	require.NoError(t, r.Register("other-name", func() store.Action { return &liar{} }))

	tests := []struct {
		name  string
		input string
	}{
		{"missing type", `{"text":"x"}`},
		{"non-string type", `{"type":1}`},
		{"empty type", `{"type":""}`},
		{"not an object", `["todos/add"]`},
		{"bad field type", `{"type":"todos/toggle","index":"three"}`},
		{"factory type mismatch", `{"type":"other-name"}`},
		{"float", `{"type":"UP","x":0.1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.DecodeJSON([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestRegisterErrors(t *testing.T) {
	r := testRegistry(t)

	assert.Error(t, r.Register("todos/add", func() store.Action { return &addTodo{} }))
	assert.Error(t, r.Register("", func() store.Action { return &addTodo{} }))
	assert.Error(t, r.Register("x", nil))
	assert.Panics(t, func() { r.MustRegister("todos/add", func() store.Action { return &addTodo{} }) })

	assert.Equal(t, []string{"todos/add", "todos/toggle"}, r.Types())
}
