//go:build unit

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRegisterAndList(t *testing.T) {
	reg := NewMockRegistry()
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, &Instance{ID: "b", Function: "fn.lua"}))
	require.NoError(t, reg.Register(ctx, &Instance{ID: "a", Function: "static"}))

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	// List hands out copies
	list[0].Function = "changed"
	again, _ := reg.List(ctx)
	assert.Equal(t, "static", again[0].Function)
}

func TestMockValidation(t *testing.T) {
	reg := NewMockRegistry()
	assert.ErrorIs(t, reg.Register(context.Background(), nil), ErrInstanceIsNil)
	assert.ErrorIs(t, reg.Register(context.Background(), &Instance{}), ErrInstanceIDIsEmpty)
	assert.ErrorIs(t, reg.Deregister(context.Background(), ""), ErrInstanceIDIsEmpty)
	assert.ErrorIs(t, reg.Deregister(context.Background(), "missing"), ErrNotRegistered)
}

func TestMockDeregister(t *testing.T) {
	reg := NewMockRegistry()
	require.NoError(t, reg.Register(context.Background(), &Instance{ID: "a"}))
	require.NoError(t, reg.Deregister(context.Background(), "a"))

	list, _ := reg.List(context.Background())
	assert.Empty(t, list)
}

func TestMockDropsInstanceWhenContextEnds(t *testing.T) {
	reg := NewMockRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, reg.Register(ctx, &Instance{ID: "a"}))

	cancel()
	assert.Eventually(t, func() bool {
		list, _ := reg.List(context.Background())
		return len(list) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMockReRegisterSurvivesOldContext(t *testing.T) {
	reg := NewMockRegistry()
	oldCtx, cancelOld := context.WithCancel(context.Background())
	require.NoError(t, reg.Register(oldCtx, &Instance{ID: "a", Address: "old"}))
	require.NoError(t, reg.Register(context.Background(), &Instance{ID: "a", Address: "new"}))

	cancelOld()
	time.Sleep(20 * time.Millisecond)

	list, _ := reg.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].Address)
}

func TestMockClose(t *testing.T) {
	reg := NewMockRegistry()
	assert.False(t, reg.Closed())
	require.NoError(t, reg.Close())
	assert.True(t, reg.Closed())
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, DefaultPrefix, normalizePrefix(""))
	assert.Equal(t, DefaultPrefix, normalizePrefix("  "))
	assert.Equal(t, "custom", normalizePrefix("custom/"))
	assert.Equal(t, "a/b", normalizePrefix(" a/b "))
}
