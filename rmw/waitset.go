package rmw

import (
	gocontext "context"
	"time"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/transport"
)

// WaitSet blocks until one of its attached conditions fires. The Wait
// call reports readiness by sparse-nulling the caller's slices in
// place: after a return, non-nil entries are ready and nil entries are
// not. The slices are reused across calls by the typical executor
// loop, so nothing is reallocated here.
type WaitSet struct {
	ctx       *Context
	destroyed bool
}

// CreateWaitSet creates a wait set bound to this context
func (c *Context) CreateWaitSet() (*WaitSet, error) {
	if err := c.checkAlive("CreateWaitSet"); err != nil {
		return nil, err
	}
	return &WaitSet{ctx: c}, nil
}

// Destroy releases the wait set
func (w *WaitSet) Destroy() error {
	if w.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "WaitSet", "Destroy", "check wait set state")
	}
	w.destroyed = true
	return nil
}

// Wait blocks until data, a guard, the graph guard or the timeout
// fires. A context shutdown during the wait is a clean empty return,
// not an error, so executor loops can observe the shutdown flag and
// exit. timeout 0 polls; a negative timeout waits indefinitely.
//
// Ready subscriptions, services and clients run their installed
// callbacks, in slice order, before Wait returns. User guards observed
// triggered stay
// triggered; clearing them is the caller's job. The graph guard is the
// exception and is cleared here once reported.
func (w *WaitSet) Wait(ctx gocontext.Context, timeout time.Duration,
	subs []*Subscription, services []*Service, clients []*Client,
	guards []*GuardCondition) error {

	if w.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "WaitSet", "Wait", "check wait set state")
	}
	c := w.ctx
	if c.IsShutdown() {
		nullAll(subs, services, clients, guards)
		w.record("shutdown")
		return nil
	}

	// Every attachable reader in one slice, positions matching the
	// caller's. Nil entries stay nil on both sides.
	readers := make([]transport.Reader, 0, len(subs)+len(services)+len(clients))
	for _, s := range subs {
		if s == nil {
			readers = append(readers, nil)
			continue
		}
		readers = append(readers, s.reader)
	}
	for _, svc := range services {
		if svc == nil {
			readers = append(readers, nil)
			continue
		}
		readers = append(readers, svc.reqReader)
	}
	for _, cl := range clients {
		if cl == nil {
			readers = append(readers, nil)
			continue
		}
		readers = append(readers, cl.respReader)
	}

	keys := make([]uint64, 0, len(guards))
	for _, g := range guards {
		if g == nil || g.destroyed {
			continue
		}
		key, err := c.transport.AttachGuardCondition(g.guard)
		if err != nil {
			w.detach(keys)
			if errors.Is(err, errors.ErrContextShutdown) {
				nullAll(subs, services, clients, guards)
				w.record("shutdown")
				return nil
			}
			return errors.Wrap(err, "WaitSet", "Wait", "attach guard condition")
		}
		keys = append(keys, key)
	}
	defer w.detach(keys)

	// Shared-memory pre-check wins over everything else: pending slots
	// satisfy the wait immediately and only those subscriptions report
	// ready.
	shmReady := false
	for _, s := range subs {
		if s != nil && s.codec.fixedSize > 0 && c.transport.ShmHasData(s.topic) {
			shmReady = true
			break
		}
	}
	if shmReady {
		for i, s := range subs {
			if s == nil {
				continue
			}
			if s.codec.fixedSize > 0 && c.transport.ShmHasData(s.topic) {
				continue
			}
			subs[i] = nil
		}
		nullAll(nil, services, clients, guards)
		runCallbacks(subs, nil, nil)
		w.record("shm")
		return nil
	}

	ready, graphFired, err := c.transport.WaitReaders(ctx, timeout, readers)
	if err != nil {
		if errors.Is(err, errors.ErrContextShutdown) || c.IsShutdown() {
			nullAll(subs, services, clients, guards)
			w.record("shutdown")
			return nil
		}
		return errors.Wrap(err, "WaitSet", "Wait", "wait on transport")
	}

	readySet := make(map[transport.Reader]bool, len(ready))
	for _, r := range ready {
		readySet[r] = true
	}
	for i, s := range subs {
		if s != nil && !readySet[s.reader] {
			subs[i] = nil
		}
	}
	for i, svc := range services {
		if svc != nil && !readySet[svc.reqReader] {
			services[i] = nil
		}
	}
	for i, cl := range clients {
		if cl != nil && !readySet[cl.respReader] {
			clients[i] = nil
		}
	}
	runCallbacks(subs, services, clients)

	guardFired := false
	for i, g := range guards {
		if g == nil {
			continue
		}
		if !g.IsTriggered() {
			guards[i] = nil
			continue
		}
		guardFired = true
	}
	if graphFired {
		c.transport.SetGraphGuard(false)
	}

	switch {
	case len(ready) > 0:
		w.record("data")
	case guardFired:
		w.record("guard")
	case graphFired:
		w.record("graph")
	default:
		w.record("timeout")
	}
	return nil
}

func (w *WaitSet) detach(keys []uint64) {
	for _, k := range keys {
		_ = w.ctx.transport.DetachGuardCondition(k)
	}
}

func (w *WaitSet) record(reason string) {
	if w.ctx.metrics != nil {
		w.ctx.metrics.RecordWakeup(reason)
	}
}

func runCallbacks(subs []*Subscription, services []*Service, clients []*Client) {
	for _, s := range subs {
		if s == nil {
			continue
		}
		if fn := s.callback.Load(); fn != nil {
			(*fn)(1)
		}
	}
	for _, svc := range services {
		if svc == nil {
			continue
		}
		if fn := svc.callback.Load(); fn != nil {
			(*fn)(1)
		}
	}
	for _, cl := range clients {
		if cl == nil {
			continue
		}
		if fn := cl.callback.Load(); fn != nil {
			(*fn)(1)
		}
	}
}

func nullAll(subs []*Subscription, services []*Service, clients []*Client, guards []*GuardCondition) {
	for i := range subs {
		subs[i] = nil
	}
	for i := range services {
		services[i] = nil
	}
	for i := range clients {
		clients[i] = nil
	}
	for i := range guards {
		guards[i] = nil
	}
}
