package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/ddd/domain/vo"
)

func TestEnqueueDequeue(t *testing.T) {
	q := NewMemoryJobQueue("q", 2)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &Job{ItemUUID: "a", Kind: vo.JobKindBuildRenditions}))
	require.NoError(t, q.Enqueue(ctx, &Job{ItemUUID: "b", Kind: vo.JobKindHLS}))
	assert.Equal(t, 2, q.Size())

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", job.ItemUUID)

	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", job.ItemUUID)
	assert.True(t, q.IsEmpty())
}

func TestEnqueueFullDoesNotBlock(t *testing.T) {
	q := NewMemoryJobQueue("q", 1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &Job{ItemUUID: "a"}))
	err := q.Enqueue(ctx, &Job{ItemUUID: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")
	assert.Equal(t, 1, q.Size())
}

func TestEnqueueNilJob(t *testing.T) {
	q := NewMemoryJobQueue("q", 1)
	assert.Error(t, q.Enqueue(context.Background(), nil))
}

func TestDequeueRespectsContext(t *testing.T) {
	q := NewMemoryJobQueue("q", 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTryDequeueEmpty(t *testing.T) {
	q := NewMemoryJobQueue("q", 1)
	job, err := q.TryDequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestCloseRejectsFurtherUse(t *testing.T) {
	q := NewMemoryJobQueue("q", 1)
	require.NoError(t, q.Close())
	assert.True(t, q.IsClosed())

	assert.Error(t, q.Enqueue(context.Background(), &Job{ItemUUID: "a"}))
	_, err := q.Dequeue(context.Background())
	assert.Error(t, err)

	// 重复关闭幂等
	assert.NoError(t, q.Close())
}
