package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Minute)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, time.Second)

	parent, cancelParent := context.WithTimeout(context.Background(), time.Second)
	defer cancelParent()
	kept, cancelKept := WithTimeout(parent, time.Minute)
	defer cancelKept()
	assert.Equal(t, parent, kept)
}

func TestNoopTransactionManager(t *testing.T) {
	var seen context.Context
	err := NoopTransactionManager{}.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		seen = ctx
		return nil
	})
	require.NoError(t, err)
	assert.False(t, InTransaction(seen))
}
