package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestFlushPublishesBuffered(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 10, time.Hour)
	bc.Track("user-1", "mention_detected", map[string]string{"term": "coffee"})
	bc.Track("user-2", "mention_detected", map[string]string{"term": "tea"})
	assert.Equal(t, 2, bc.BufferLen())

	bc.Flush(context.Background())
	assert.Equal(t, 0, bc.BufferLen())
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "user-1", pub.batches[0][0].Key)
	assert.Equal(t, "mention_detected", pub.batches[0][0].Type)
}

func TestFailedFlushRequeuesWithCap(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	bc := NewBatchCollector(pub, 100, time.Hour)
	for range 50 {
		bc.Track("k", "", 1)
	}
	bc.Flush(context.Background())
	assert.Equal(t, 50, bc.BufferLen())

	pub.err = nil
	bc.Flush(context.Background())
	assert.Equal(t, 50, pub.count())
}

func TestFullBufferFlushesInBackground(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 3, time.Hour)
	for range 3 {
		bc.Track("k", "", 1)
	}
	assert.Eventually(t, func() bool { return pub.count() == 3 }, time.Second, 5*time.Millisecond)
}

func TestStartFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)
	bc.Track("k", "", 1)
	cancel()
	bc.Close()
	assert.Equal(t, 1, pub.count())
}
