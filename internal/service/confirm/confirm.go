// Package confirm parks tool call confirmation requests until a user decides on them over the API.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrNoPendingConfirmation is returned when resolving an invocation nobody is waiting on.
var ErrNoPendingConfirmation = errors.New("no pending confirmation")

type key struct {
	runID        string
	invocationID string
}

// Broker holds the confirmation requests of all active runs.
// Invocation IDs are only unique within a run, so every request is keyed by its run ID as well.
type Broker struct {
	mu      sync.Mutex
	pending map[key]chan bool

	logger *zap.Logger
}

// NewBroker creates a new Broker.
func NewBroker(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		pending: make(map[key]chan bool),
		logger:  logger,
	}
}

// RunConfirmer requests confirmations on behalf of a single run.
type RunConfirmer struct {
	broker *Broker
	runID  string
}

// Scoped returns the confirmer of the given run.
func (b *Broker) Scoped(runID string) *RunConfirmer {
	return &RunConfirmer{broker: b, runID: runID}
}

// RequestConfirmation blocks until the invocation is resolved or ctx is done.
func (c *RunConfirmer) RequestConfirmation(ctx context.Context, invocationID string) (bool, error) {
	return c.broker.wait(ctx, key{runID: c.runID, invocationID: invocationID})
}

func (b *Broker) wait(ctx context.Context, k key) (bool, error) {
	decision := make(chan bool, 1)

	b.mu.Lock()
	if _, exists := b.pending[k]; exists {
		b.mu.Unlock()
		return false, fmt.Errorf("confirmation for invocation %s of run %s is already pending", k.invocationID, k.runID)
	}
	b.pending[k] = decision
	b.mu.Unlock()

	b.logger.Debug("waiting for tool call confirmation",
		zap.String("run_id", k.runID), zap.String("invocation_id", k.invocationID))

	select {
	case confirmed := <-decision:
		return confirmed, nil
	case <-ctx.Done():
		b.mu.Lock()
		withdrawn := b.pending[k] == decision
		if withdrawn {
			delete(b.pending, k)
		}
		b.mu.Unlock()
		if !withdrawn {
			// Resolve took the entry first and its caller was told the decision landed.
			return <-decision, nil
		}
		return false, ctx.Err()
	}
}

// Resolve delivers the user's decision to the waiting invocation.
func (b *Broker) Resolve(runID, invocationID string, confirmed bool) error {
	k := key{runID: runID, invocationID: invocationID}

	b.mu.Lock()
	decision, ok := b.pending[k]
	if ok {
		delete(b.pending, k)
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w for invocation %s of run %s", ErrNoPendingConfirmation, invocationID, runID)
	}
	decision <- confirmed

	b.logger.Info("resolved tool call confirmation",
		zap.String("run_id", runID), zap.String("invocation_id", invocationID), zap.Bool("confirmed", confirmed))
	return nil
}

// Pending returns the sorted IDs of the invocations of a run that are waiting for a decision.
func (b *Broker) Pending(runID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0)
	for k := range b.pending {
		if k.runID == runID {
			ids = append(ids, k.invocationID)
		}
	}
	sort.Strings(ids)
	return ids
}
