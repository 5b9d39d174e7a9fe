package downloadq

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/streampool"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// IFinisher drains a handed-off download to completion. Implemented by
// the transaction engine.
type IFinisher interface {
	FinishDownload(ctx context.Context, slot *streampool.Slot, node *entity.Node) error
}

// Queue completes in-progress downloads in the background so request
// goroutines return as soon as the first chunk is on disk. Concurrency is
// bounded; the slot pool already caps how many handoffs can exist at once,
// the semaphore just keeps completions from starving request traffic.
type Queue struct {
	finisher IFinisher
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
}

func New(finisher IFinisher, workers int64) *Queue {
	if workers <= 0 {
		workers = 1
	}
	return &Queue{finisher: finisher, sem: semaphore.NewWeighted(workers)}
}

// Enqueue takes ownership of the slot and finishes the download on a
// background goroutine. The request's cancellation is deliberately not
// inherited: the transfer must outlive the request that started it.
func (q *Queue) Enqueue(ctx context.Context, node *entity.Node, slot *streampool.Slot) {
	bg := context.WithoutCancel(ctx)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.sem.Acquire(bg, 1); err != nil {
			// cannot happen with an uncancellable context, but a slot must
			// never leak
			_ = q.finisher.FinishDownload(bg, slot, node)
			return
		}
		defer q.sem.Release(1)
		if err := q.finisher.FinishDownload(bg, slot, node); err != nil {
			logutil.GetLogger(bg).Error("background download failed",
				zap.String("path", node.Path), zap.Error(err))
		}
	}()
}

// Close waits for every queued download to finish or abort.
func (q *Queue) Close() {
	q.wg.Wait()
}
