package rmw

import (
	gocontext "context"
	"sync"
	"time"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/pkg/worker"
	"github.com/c360/ddsbridge/transport"
)

// SubscriptionHandler receives one decoded message per invocation
type SubscriptionHandler func(msg any, info transport.SampleInfo)

// ServiceHandler receives one decoded request. It is responsible for
// calling SendResponse with the same id when a reply is wanted.
type ServiceHandler func(id RequestID, req any)

// Executor drives a wait loop over registered entities and dispatches
// their handlers on a worker pool, so one slow handler cannot hold up
// unrelated topics.
type Executor struct {
	ctx  *Context
	ws   *WaitSet
	pool *worker.Pool[execJob]

	mu       sync.Mutex
	subs     map[*Subscription]SubscriptionHandler
	services map[*Service]ServiceHandler
	running  bool
}

type execJob struct {
	run func(gocontext.Context) error
}

// ExecutorOption configures an Executor
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	workers   int
	queueSize int
}

// WithExecutorWorkers sets the handler pool size
func WithExecutorWorkers(n int) ExecutorOption {
	return func(c *executorConfig) { c.workers = n }
}

// WithExecutorQueueSize bounds the pending handler queue
func WithExecutorQueueSize(n int) ExecutorOption {
	return func(c *executorConfig) { c.queueSize = n }
}

// CreateExecutor builds an executor bound to this context
func (c *Context) CreateExecutor(opts ...ExecutorOption) (*Executor, error) {
	if err := c.checkAlive("CreateExecutor"); err != nil {
		return nil, err
	}
	cfg := executorConfig{workers: 4, queueSize: 256}
	for _, opt := range opts {
		opt(&cfg)
	}
	ws, err := c.CreateWaitSet()
	if err != nil {
		return nil, err
	}
	e := &Executor{
		ctx:      c,
		ws:       ws,
		subs:     make(map[*Subscription]SubscriptionHandler),
		services: make(map[*Service]ServiceHandler),
	}
	e.pool = worker.NewPool(cfg.workers, cfg.queueSize,
		func(jctx gocontext.Context, j execJob) error { return j.run(jctx) })
	return e, nil
}

// AddSubscription registers a subscription with its handler. Replaces
// any handler already registered for the same subscription.
func (e *Executor) AddSubscription(s *Subscription, fn SubscriptionHandler) error {
	if s == nil || fn == nil {
		return errors.WrapInvalid(errors.New("subscription and handler must not be nil"),
			"Executor", "AddSubscription", "validate arguments")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs[s] = fn
	return nil
}

// RemoveSubscription drops a subscription from the dispatch set
func (e *Executor) RemoveSubscription(s *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, s)
}

// AddService registers a service with its handler
func (e *Executor) AddService(s *Service, fn ServiceHandler) error {
	if s == nil || fn == nil {
		return errors.WrapInvalid(errors.New("service and handler must not be nil"),
			"Executor", "AddService", "validate arguments")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.services[s] = fn
	return nil
}

// RemoveService drops a service from the dispatch set
func (e *Executor) RemoveService(s *Service) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.services, s)
}

// Spin blocks dispatching handlers until the context is done or the
// middleware shuts down. It owns the pool lifecycle for its duration.
func (e *Executor) Spin(ctx gocontext.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.WrapInvalid(errors.New("executor already spinning"),
			"Executor", "Spin", "check executor state")
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if err := e.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "Executor", "Spin", "start handler pool")
	}
	defer func() { _ = e.pool.Stop(5 * time.Second) }()

	for ctx.Err() == nil {
		if e.ctx.IsShutdown() {
			return nil
		}
		if err := e.SpinOnce(ctx, 100*time.Millisecond); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

// SpinOnce waits up to timeout for ready entities and dispatches one
// batch of handlers. Handlers run on the pool; SpinOnce does not wait
// for them to finish.
func (e *Executor) SpinOnce(ctx gocontext.Context, timeout time.Duration) error {
	subs, subHandlers, services, svcHandlers := e.snapshot()

	if err := e.ws.Wait(ctx, timeout, subs, services, nil, nil); err != nil {
		return err
	}
	for i, s := range subs {
		if s == nil {
			continue
		}
		e.submitSubscription(s, subHandlers[i])
	}
	for i, s := range services {
		if s == nil {
			continue
		}
		e.submitService(s, svcHandlers[i])
	}
	return nil
}

// snapshot builds position-matched entity and handler slices. Wait
// nulls the entries that are not ready, so the slices are rebuilt on
// every pass.
func (e *Executor) snapshot() ([]*Subscription, []SubscriptionHandler, []*Service, []ServiceHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := make([]*Subscription, 0, len(e.subs))
	subHandlers := make([]SubscriptionHandler, 0, len(e.subs))
	for s, fn := range e.subs {
		subs = append(subs, s)
		subHandlers = append(subHandlers, fn)
	}
	services := make([]*Service, 0, len(e.services))
	svcHandlers := make([]ServiceHandler, 0, len(e.services))
	for s, fn := range e.services {
		services = append(services, s)
		svcHandlers = append(svcHandlers, fn)
	}
	return subs, subHandlers, services, svcHandlers
}

func (e *Executor) submitSubscription(s *Subscription, fn SubscriptionHandler) {
	job := execJob{run: func(gocontext.Context) error {
		for {
			msg := s.ts.NewMessage()
			info, taken, err := s.TakeWithInfo(msg)
			if err != nil {
				return err
			}
			if !taken {
				return nil
			}
			fn(msg, info)
		}
	}}
	if err := e.pool.Submit(job); err != nil {
		e.ctx.logger.Debugf("executor: dropped dispatch for %s: %v", s.Topic(), err)
	}
}

func (e *Executor) submitService(s *Service, fn ServiceHandler) {
	job := execJob{run: func(gocontext.Context) error {
		for {
			req := s.reqTS.NewMessage()
			id, taken, err := s.TakeRequest(req)
			if err != nil {
				return err
			}
			if !taken {
				return nil
			}
			fn(id, req)
		}
	}}
	if err := e.pool.Submit(job); err != nil {
		e.ctx.logger.Debugf("executor: dropped dispatch for %s: %v", s.Name(), err)
	}
}

// Destroy releases the executor's wait set. The executor must not be
// spinning.
func (e *Executor) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.WrapInvalid(errors.New("executor is spinning"),
			"Executor", "Destroy", "check executor state")
	}
	return e.ws.Destroy()
}
