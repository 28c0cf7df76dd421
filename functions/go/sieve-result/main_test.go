//go:build unit

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3s-rg-codes/fnbridge/pkg/encoder"
	"github.com/3s-rg-codes/fnbridge/pkg/function"
)

func TestHandlerPrimes(t *testing.T) {
	out, err := handler(context.Background(), &function.Request{Data: "10"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 5, 7}, out)
}

func TestHandlerRejectsOversizedBound(t *testing.T) {
	out, err := handler(context.Background(), &function.Request{Data: "99999999999999"})
	require.NoError(t, err)
	env, ok := out.(encoder.Envelope)
	require.True(t, ok)
	assert.Equal(t, "4.00", env.ResponseCode)
	assert.Equal(t, 400, env.HTTPStatus())
}
