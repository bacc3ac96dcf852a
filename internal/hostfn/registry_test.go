package hostfn

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgridgo/internal/payload"
)

func TestRegistry_Register(t *testing.T) {
	r := New()
	r.Register("Double", func(n int) int { return n * 2 })

	syms := r.Symbols()
	require.Contains(t, syms, "Double")
	got := syms["Double"].Interface().(func(int) int)(21)
	assert.Equal(t, 42, got)
	assert.Equal(t, []string{"Double"}, r.Names())
}

func TestRegistry_RejectsBadRegistrations(t *testing.T) {
	testCases := []struct {
		name string
		fn   func(r *Registry)
	}{
		{
			name: "unexported name",
			fn:   func(r *Registry) { r.Register("double", func() {}) },
		},
		{
			name: "empty name",
			fn:   func(r *Registry) { r.Register("", func() {}) },
		},
		{
			name: "not a func",
			fn:   func(r *Registry) { r.Register("Value", 42) },
		},
		{
			name: "duplicate",
			fn: func(r *Registry) {
				r.Register("Dup", func() {})
				r.Register("Dup", func() {})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Panics(t, func() { tc.fn(New()) })
		})
	}
}

func TestRegisterCore(t *testing.T) {
	r := New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	RegisterCore(r, logger, payload.NewResolver("/base"))

	syms := r.Symbols()
	require.Contains(t, syms, "Log")
	require.Contains(t, syms, "Resolve")

	resolve := syms["Resolve"].Interface().(func(string) (string, error))
	got, err := resolve("x.png")
	require.NoError(t, err)
	assert.Equal(t, "/base/x.png", got)
}
