package params

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	p := map[string]interface{}{"name": "ls", "n": 3.0, "null": nil}

	s, err := String(p, "name")
	require.NoError(t, err)
	assert.Equal(t, "ls", s)

	s, err = String(p, "missing")
	require.NoError(t, err)
	assert.Empty(t, s)

	s, err = String(p, "null")
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = String(p, "n")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = RequiredString(p, "missing")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestInt(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    int
		wantErr bool
	}{
		{"float", 80.0, 80, false},
		{"int", 24, 24, false},
		{"json number", json.Number("120"), 120, false},
		{"fraction", 1.5, 0, true},
		{"string", "80", 0, true},
		{"huge", 1e12, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Int(map[string]interface{}{"v": tt.value}, "v", 7)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := Int(map[string]interface{}{}, "v", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestBool(t *testing.T) {
	b, err := Bool(map[string]interface{}{"pty": false}, "pty", true)
	require.NoError(t, err)
	assert.False(t, b)

	b, err = Bool(map[string]interface{}{}, "pty", true)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = Bool(map[string]interface{}{"pty": "yes"}, "pty", true)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestStringSlice(t *testing.T) {
	got, err := StringSlice(map[string]interface{}{"args": []interface{}{"-l", "-a"}}, "args")
	require.NoError(t, err)
	assert.Equal(t, []string{"-l", "-a"}, got)

	got, err = StringSlice(map[string]interface{}{"args": []string{"x"}}, "args")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)

	_, err = StringSlice(map[string]interface{}{"args": []interface{}{1.0}}, "args")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = StringSlice(map[string]interface{}{"args": "ls"}, "args")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestStringMap(t *testing.T) {
	got, err := StringMap(map[string]interface{}{"env": map[string]interface{}{"A": "1"}}, "env")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1"}, got)

	_, err = StringMap(map[string]interface{}{"env": map[string]interface{}{"A": 1.0}}, "env")
	assert.ErrorIs(t, err, ErrInvalid)

	got, err = StringMap(map[string]interface{}{}, "env")
	require.NoError(t, err)
	assert.Nil(t, got)
}
