package memtransport

import "sync/atomic"

// guardCondition is the in-process guard: an atomic flag that wakes the
// context's wait aggregate on Trigger.
type guardCondition struct {
	ctx  *Context
	flag atomic.Bool
}

// Trigger sets the flag and wakes any wait observing it
func (g *guardCondition) Trigger() {
	g.flag.Store(true)
	g.ctx.notify()
}

// IsTriggered reports the flag without clearing it
func (g *guardCondition) IsTriggered() bool {
	return g.flag.Load()
}

// Reset clears the flag
func (g *guardCondition) Reset() {
	g.flag.Store(false)
}
