package gateway

import (
	"errors"
	"testing"

	billingerrors "plans/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(s Settings) (Gateway, error) {
		if s.SecretKey == "" {
			return nil, errors.New("secret key required")
		}
		return testBase(), nil
	})

	gw, err := r.Resolve("test", Settings{SecretKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "Test", gw.Name())

	_, err = r.Resolve("test", Settings{})
	assert.True(t, errors.Is(err, billingerrors.ErrGatewayNotConfigured))
	assert.Contains(t, err.Error(), "secret key required")

	_, err = r.Resolve("missing", Settings{})
	assert.True(t, errors.Is(err, billingerrors.ErrGatewayNotConfigured))

	assert.Equal(t, []string{"test"}, r.Keys())
}

func TestRegistry_RegisterPanics(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func(Settings) (Gateway, error) { return testBase(), nil })

	assert.Panics(t, func() { r.Register("a", func(Settings) (Gateway, error) { return nil, nil }) })
	assert.Panics(t, func() { r.Register("b", nil) })
}
