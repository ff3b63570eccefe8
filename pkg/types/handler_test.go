package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandlerFactory(t *testing.T) {
	ctor := func(path string, kwargs Kwargs) (Handler, error) {
		return HandlerFunc(func(Kwargs) (any, error) { return path, nil }), nil
	}

	f1 := NewHandlerFactory("echo", ctor)
	f2 := NewHandlerFactory("echo", ctor)

	assert.Equal(t, "echo", f1.Name())
	assert.True(t, f1 == f1)
	assert.False(t, f1 == f2, "distinct factories must not compare equal")

	h, err := f1.New("/data/a.h5", nil)
	require.NoError(t, err)
	got, err := h.Read(Kwargs{})
	require.NoError(t, err)
	assert.Equal(t, "/data/a.h5", got)
}
