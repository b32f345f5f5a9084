package orchestrator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mcpjungle/toolbridge/pkg/types"
)

// ErrIllegalTransition is returned by Aggregate.Upsert when the update would move an
// invocation along a path the status machine does not allow.
var ErrIllegalTransition = errors.New("illegal invocation status transition")

// Aggregate is the running collection of invocation records shared by the runs of a conversation.
// It holds exactly one record per invocation ID.
type Aggregate struct {
	mu      sync.RWMutex
	records []types.InvocationRequest
	index   map[string]int
}

// NewAggregate returns an empty Aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{index: make(map[string]int)}
}

// Upsert inserts inv, or updates the status, arguments and response of the record with the same ID.
// It returns the stored record.
func (a *Aggregate) Upsert(inv types.InvocationRequest) (types.InvocationRequest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.index == nil {
		a.index = make(map[string]int)
	}

	i, ok := a.index[inv.ID]
	if !ok {
		if !types.InvocationStatus("").CanTransition(inv.Status) {
			return types.InvocationRequest{}, fmt.Errorf("%w: new invocation %s must start as %s, got %s",
				ErrIllegalTransition, inv.ID, types.StatusPending, inv.Status)
		}
		a.index[inv.ID] = len(a.records)
		a.records = append(a.records, inv)
		return inv, nil
	}

	cur := a.records[i]
	if !cur.Status.CanTransition(inv.Status) {
		return cur, fmt.Errorf("%w: invocation %s cannot move from %s to %s",
			ErrIllegalTransition, inv.ID, cur.Status, inv.Status)
	}
	cur.Status = inv.Status
	cur.Arguments = inv.Arguments
	cur.Response = inv.Response
	a.records[i] = cur
	return cur, nil
}

// Get returns the record with the given ID.
func (a *Aggregate) Get(id string) (types.InvocationRequest, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i, ok := a.index[id]
	if !ok {
		return types.InvocationRequest{}, false
	}
	return a.records[i], true
}

// Snapshot returns a copy of all records in insertion order.
func (a *Aggregate) Snapshot() []types.InvocationRequest {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]types.InvocationRequest, len(a.records))
	copy(out, a.records)
	return out
}

// Len returns the number of records.
func (a *Aggregate) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}
