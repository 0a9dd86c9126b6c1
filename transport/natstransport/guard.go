package natstransport

import "sync/atomic"

// guardCondition is a sticky boolean wakeup source. Trigger wakes
// blocked waits; the flag stays set until Reset.
type guardCondition struct {
	ctx       *Context
	flag      atomic.Bool
	destroyed atomic.Bool
}

func (g *guardCondition) Trigger() {
	if g.destroyed.Load() {
		return
	}
	g.flag.Store(true)
	g.ctx.notify()
}

func (g *guardCondition) IsTriggered() bool {
	return !g.destroyed.Load() && g.flag.Load()
}

func (g *guardCondition) Reset() {
	g.flag.Store(false)
}
