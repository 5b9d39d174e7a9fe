package downloadq

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/streampool"
)

type blockingFinisher struct {
	mu      sync.Mutex
	active  int
	peak    int
	total   atomic.Int32
	release chan struct{}
}

func (f *blockingFinisher) FinishDownload(ctx context.Context, slot *streampool.Slot, node *entity.Node) error {
	f.mu.Lock()
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()
	<-f.release
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	f.total.Add(1)
	node.SetDownloadStatus(entity.DownloadFinished)
	return nil
}

func TestQueueCompletesAll(t *testing.T) {
	f := &blockingFinisher{release: make(chan struct{})}
	close(f.release)
	q := New(f, 2)

	nodes := make([]*entity.Node, 8)
	for i := range nodes {
		nodes[i] = &entity.Node{Path: "f"}
		nodes[i].SetDownloadStatus(entity.DownloadInProgress)
		q.Enqueue(context.Background(), nodes[i], nil)
	}
	q.Close()

	assert.Equal(t, int32(8), f.total.Load())
	for _, n := range nodes {
		assert.Equal(t, entity.DownloadFinished, n.DownloadStatus())
	}
}

func TestQueueBoundsConcurrency(t *testing.T) {
	f := &blockingFinisher{release: make(chan struct{})}
	q := New(f, 2)

	for i := 0; i < 6; i++ {
		q.Enqueue(context.Background(), &entity.Node{Path: "f"}, nil)
	}
	// let everything flow once the workers have piled up on the gate
	close(f.release)
	q.Close()

	assert.Equal(t, int32(6), f.total.Load())
	assert.LessOrEqual(t, f.peak, 2)
}
