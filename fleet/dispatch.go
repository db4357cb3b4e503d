package fleet

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// DefaultMaxConcurrent bounds in-flight device operations across all batches.
const DefaultMaxConcurrent = 10

// Operation runs against one resolved device.
type Operation func(ctx context.Context, id string, client DeviceClient) error

// Target is a batch member. A nil Client means the id did not resolve.
type Target struct {
	ID     string
	Client DeviceClient
}

// Dispatcher fans operations out under one process-wide weighted semaphore.
type Dispatcher struct {
	sem *semaphore.Weighted
	max int64
}

func NewDispatcher(maxConcurrent int) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Dispatcher{
		sem: semaphore.NewWeighted(int64(maxConcurrent)),
		max: int64(maxConcurrent),
	}
}

func (d *Dispatcher) Capacity() int {
	return int(d.max)
}

// Dispatch runs op for every target and waits for all of them.
// Unresolved targets fail immediately without taking a slot. One result per target, in target order,
// except for workers that panicked: those are logged and left out.
func (d *Dispatcher) Dispatch(ctx context.Context, targets []Target, op Operation) []types.GroupCommandResult {
	results := make([]*types.GroupCommandResult, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		if target.Client == nil {
			results[i] = &types.GroupCommandResult{
				CameraID: target.ID,
				Success:  false,
				Error:    fmt.Sprintf("camera not found: %s", target.ID),
			}
			continue
		}
		wg.Add(1)
		go func(idx int, t Target) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					tool.DefaultLogger.Errorf("Group operation task for %s panicked: %v\n%s", t.ID, r, debug.Stack())
				}
			}()
			if err := d.sem.Acquire(ctx, 1); err != nil {
				results[idx] = &types.GroupCommandResult{CameraID: t.ID, Success: false, Error: err.Error()}
				return
			}
			defer d.sem.Release(1)

			res := &types.GroupCommandResult{CameraID: t.ID, Success: true}
			if err := op(ctx, t.ID, t.Client); err != nil {
				res.Success = false
				res.Error = err.Error()
			}
			results[idx] = res
		}(i, target)
	}
	wg.Wait()

	out := make([]types.GroupCommandResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
