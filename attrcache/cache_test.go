package attrcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/davmount/entity"
)

func TestPutGet(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, "dir/file", Entry{
		Stat:   entity.Stat{Size: 42},
		Header: []byte("prefetched header"),
	})
	c.Wait()

	ent, ok := c.Get(ctx, "dir/file")
	require.True(t, ok)
	assert.Equal(t, int64(42), ent.Stat.Size)
	assert.Equal(t, []byte("prefetched header"), ent.Header)

	_, ok = c.Get(ctx, "dir/other")
	assert.False(t, ok)
}

func TestGetExpired(t *testing.T) {
	c, err := New(WithMaxAge(time.Nanosecond))
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, "dir/file", Entry{Header: []byte("h")})
	c.Wait()
	time.Sleep(time.Millisecond)

	_, ok := c.Get(ctx, "dir/file")
	assert.False(t, ok)
}

func TestGetCorrupted(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, "dir/file", Entry{Header: []byte("good header")})
	c.Wait()

	ent, ok := c.Get(ctx, "dir/file")
	require.True(t, ok)
	// scribble over the stored blob; the checksum must catch it
	ent.Header[0] = 'X'

	_, ok = c.Get(ctx, "dir/file")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, "dir/file", Entry{Header: []byte("h")})
	c.Wait()
	c.Invalidate(ctx, "dir/file")

	_, ok := c.Get(ctx, "dir/file")
	assert.False(t, ok)
}
