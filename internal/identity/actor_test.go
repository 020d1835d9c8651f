package identity

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHeaders(t *testing.T) {
	h := http.Header{}
	_, ok := FromHeaders(h)
	assert.False(t, ok)

	h.Set(HeaderPlayerID, " 42 ")
	h.Set(HeaderPlayerName, "Ana")
	h.Set(HeaderPlayerAdmin, "true")
	c, ok := FromHeaders(h)
	require.True(t, ok)
	assert.Equal(t, "42", c.ID)
	assert.True(t, c.Admin)
	assert.Equal(t, "Ana", c.Name)

	h.Set(HeaderPlayerAdmin, "nope")
	c, _ = FromHeaders(h)
	assert.False(t, c.Admin)
}

func TestCallerContext(t *testing.T) {
	_, ok := CallerFrom(context.Background())
	assert.False(t, ok)

	ctx := WithCaller(context.Background(), Caller{Name: "Ana"})
	c, ok := CallerFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "Ana", c.Name)
}
