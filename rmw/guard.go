package rmw

import (
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/transport"
)

// GuardCondition is a manually triggered wakeup source for wait sets.
// Triggered state is sticky until Reset; a wait observing the guard
// reports it without re-arming it.
type GuardCondition struct {
	ctx       *Context
	guard     transport.GuardCondition
	owned     bool
	destroyed bool
}

// CreateGuardCondition allocates a guard backed by the context's
// transport.
func (c *Context) CreateGuardCondition() (*GuardCondition, error) {
	if err := c.checkAlive("CreateGuardCondition"); err != nil {
		return nil, err
	}
	g, err := c.transport.CreateGuardCondition()
	if err != nil {
		return nil, errors.Wrap(err, "GuardCondition", "CreateGuardCondition", "create transport guard")
	}
	return &GuardCondition{ctx: c, guard: g, owned: true}, nil
}

// WrapGuardCondition wraps an existing transport guard, such as the
// graph-change guard, without taking ownership of it. Destroy on the
// wrapper never destroys the underlying guard.
func WrapGuardCondition(c *Context, g transport.GuardCondition) *GuardCondition {
	return &GuardCondition{ctx: c, guard: g}
}

// Trigger marks the guard and wakes any wait blocked on it
func (g *GuardCondition) Trigger() error {
	if g.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "GuardCondition", "Trigger", "check guard state")
	}
	g.guard.Trigger()
	return nil
}

// IsTriggered reports the guard's sticky state
func (g *GuardCondition) IsTriggered() bool {
	if g.destroyed {
		return false
	}
	return g.guard.IsTriggered()
}

// Reset clears the guard
func (g *GuardCondition) Reset() {
	if g.destroyed {
		return
	}
	g.guard.Reset()
}

// Destroy releases the guard. Wrapped guards only drop the handle;
// the transport guard they borrow stays alive.
func (g *GuardCondition) Destroy() error {
	if g.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "GuardCondition", "Destroy", "check guard state")
	}
	g.destroyed = true
	if !g.owned {
		return nil
	}
	if err := g.ctx.transport.DestroyGuardCondition(g.guard); err != nil {
		return errors.Wrap(err, "GuardCondition", "Destroy", "destroy transport guard")
	}
	return nil
}
