package authcache

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) *http.Request {
	req, err := http.NewRequest(http.MethodGet, "http://dav.example.com/a", nil)
	require.NoError(t, err)
	return req
}

func TestApplyAttachesCredentials(t *testing.T) {
	c, err := New(&Credentials{Username: "u", Password: "p"}, nil)
	require.NoError(t, err)

	req := newRequest(t)
	var gen uint64
	require.NoError(t, c.Apply(context.Background(), 501, req, 0, &gen))
	// "u:p" in basic form
	assert.Equal(t, "Basic dTpw", req.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Proxy-Authorization"))
	assert.NotZero(t, gen)
}

func TestApplyRefusesRejectedGeneration(t *testing.T) {
	c, err := New(&Credentials{Username: "u", Password: "p"}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	req := newRequest(t)
	var gen uint64
	require.NoError(t, c.Apply(ctx, 501, req, 0, &gen))

	// the server said 401 to the generation we just applied
	err = c.Apply(ctx, 501, newRequest(t), http.StatusUnauthorized, &gen)
	assert.ErrorIs(t, err, ErrRejected)

	// new credentials re-arm the transaction
	c.SetServerCredentials(Credentials{Username: "u2", Password: "p2"})
	req2 := newRequest(t)
	require.NoError(t, c.Apply(ctx, 501, req2, http.StatusUnauthorized, &gen))
	assert.Equal(t, "Basic dTI6cDI=", req2.Header.Get("Authorization"))
}

func TestApplyWithoutCredentials(t *testing.T) {
	c, err := New(nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	// nothing demanded, nothing attached
	req := newRequest(t)
	var gen uint64
	require.NoError(t, c.Apply(ctx, 501, req, 0, &gen))
	assert.Empty(t, req.Header.Get("Authorization"))

	// a challenge with nothing to offer
	err = c.Apply(ctx, 501, newRequest(t), http.StatusUnauthorized, &gen)
	assert.ErrorIs(t, err, ErrNoCredentials)
	err = c.Apply(ctx, 501, newRequest(t), http.StatusProxyAuthRequired, &gen)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestMarkValid(t *testing.T) {
	c, err := New(&Credentials{Username: "u", Password: "p"}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	req := newRequest(t)
	var gen uint64
	require.NoError(t, c.Apply(ctx, 501, req, 0, &gen))
	assert.False(t, c.Validated(501, "dav.example.com"))
	require.NoError(t, c.MarkValid(ctx, 501, req, gen))
	assert.True(t, c.Validated(501, "dav.example.com"))
	// a different identity is tracked separately
	assert.False(t, c.Validated(502, "dav.example.com"))
}

func TestInvalidateProxy(t *testing.T) {
	c, err := New(nil, &Credentials{Username: "pu", Password: "pp"})
	require.NoError(t, err)
	ctx := context.Background()

	req := newRequest(t)
	var gen uint64
	require.NoError(t, c.Apply(ctx, 501, req, 0, &gen))
	assert.NotEmpty(t, req.Header.Get("Proxy-Authorization"))

	require.NoError(t, c.InvalidateProxy(ctx))
	req2 := newRequest(t)
	var gen2 uint64
	require.NoError(t, c.Apply(ctx, 501, req2, 0, &gen2))
	assert.Empty(t, req2.Header.Get("Proxy-Authorization"))
}
