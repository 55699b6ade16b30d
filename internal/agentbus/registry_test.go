package agentbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySetOnce(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Register("m1")

	_, ok := r.Response("m1")
	assert.False(t, ok)

	assert.True(t, r.SetResponse("m1", "first"))
	assert.False(t, r.SetResponse("m1", "second"))
	assert.False(t, r.SetResponse("missing", "x"))

	got, ok := r.Response("m1")
	require.True(t, ok)
	assert.Equal(t, "first", got)
}

func TestRegistryWait(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Register("m1")

	go func() {
		time.Sleep(10 * time.Millisecond)
		r.SetResponse("m1", "done")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := r.Wait(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "done", got)

	_, err = r.Wait(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestRegistryWaitTimeout(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Register("m1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Wait(ctx, "m1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistryExpiry(t *testing.T) {
	r := NewRegistry(30 * time.Millisecond)
	r.Register("old")
	r.SetResponse("old", "x")

	assert.Eventually(t, func() bool {
		_, ok := r.Response("old")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.False(t, r.SetResponse("old", "y"))
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Register("m1")
	r.SetResponse("m1", "kept")
	r.Register("m1")

	got, ok := r.Response("m1")
	require.True(t, ok)
	assert.Equal(t, "kept", got)
	assert.Equal(t, 1, r.Len())
}
