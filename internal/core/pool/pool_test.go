package pool

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCollect_AllResults(t *testing.T) {
	var tasks []Task[int]
	for i := 0; i < 20; i++ {
		tasks = append(tasks, func(ctx context.Context) []int { return []int{i, i * 10} })
	}

	out := Collect(context.Background(), 4, tasks)
	assert.Len(t, out, 40)

	sort.Ints(out)
	assert.Equal(t, 0, out[0])
	assert.Equal(t, 190, out[len(out)-1])
}

func TestCollect_BoundsConcurrency(t *testing.T) {
	var inflight, peak atomic.Int32
	var tasks []Task[struct{}]
	for i := 0; i < 12; i++ {
		tasks = append(tasks, func(ctx context.Context) []struct{} {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inflight.Add(-1)
			return nil
		})
	}

	Collect(context.Background(), 3, tasks)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestCollect_EmptyBatchesAndNoTasks(t *testing.T) {
	assert.Nil(t, Collect[int](context.Background(), 2, nil))

	out := Collect(context.Background(), 2, []Task[int]{
		func(ctx context.Context) []int { return nil },
		func(ctx context.Context) []int { return []int{7} },
	})
	assert.Equal(t, []int{7}, out)
}

func TestCollect_CancelledContextSkipsPendingTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	out := Collect(ctx, 1, []Task[int]{
		func(ctx context.Context) []int { ran.Add(1); return []int{1} },
	})
	assert.Empty(t, out)
	assert.Equal(t, int32(0), ran.Load())
}
