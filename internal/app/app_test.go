package app

import (
	"errors"
	"testing"

	billingerrors "plans/internal/errors"
	"plans/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"sandbox", "stripe"}, r.Keys())

	gw, err := r.Resolve("sandbox", gateway.Settings{})
	require.NoError(t, err)
	assert.Equal(t, "Sandbox", gw.Name())

	_, err = r.Resolve("stripe", gateway.Settings{TestMode: true})
	assert.True(t, errors.Is(err, billingerrors.ErrGatewayNotConfigured))

	_, err = r.Resolve("braintree", gateway.Settings{})
	assert.True(t, errors.Is(err, billingerrors.ErrGatewayNotConfigured))
}
