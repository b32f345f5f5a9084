package orchestrator

import "sync"

// Ledger tracks the invocations of one run that are waiting for a user confirmation.
// Confirming one of them releases every other waiting invocation of a tool with the same name.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*ledgerEntry
}

type ledgerEntry struct {
	toolName string
	released chan struct{}
	closed   bool
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*ledgerEntry)}
}

// Register records that the invocation is waiting for confirmation.
// Registering an ID again is a no-op.
func (l *Ledger) Register(invocationID, toolName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[invocationID]; ok {
		return
	}
	l.entries[invocationID] = &ledgerEntry{toolName: toolName, released: make(chan struct{})}
}

// Released returns a channel that is closed once another invocation of the same tool name is confirmed.
// The channel stays available until the invocation settles. It returns nil, which blocks forever,
// for IDs that were never registered.
func (l *Ledger) Released(invocationID string) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[invocationID]
	if !ok {
		return nil
	}
	return e.released
}

// ReleaseSameName releases every waiting invocation, other than invocationID, whose tool name
// matches that of invocationID. It returns the released IDs.
func (l *Ledger) ReleaseSameName(invocationID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	self, ok := l.entries[invocationID]
	if !ok {
		return nil
	}

	var released []string
	for id, e := range l.entries {
		if id == invocationID || e.closed || e.toolName != self.toolName {
			continue
		}
		close(e.released)
		e.closed = true
		released = append(released, id)
	}
	return released
}

// Settle removes the invocation once its confirmation wait is over.
// Settled invocations are no longer released by later confirmations.
func (l *Ledger) Settle(invocationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, invocationID)
}

// Pending returns the number of invocations still waiting and not yet released.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if !e.closed {
			n++
		}
	}
	return n
}
