package rmw

import (
	gocontext "context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ddsbridge/msgs"
	"github.com/c360/ddsbridge/qos"
	"github.com/c360/ddsbridge/transport"
)

func TestExecutorDispatchesSubscription(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()
	pub, sub := pubSubPair(t, c, "chatter", msgs.StringTypeSupport(), qos.Default())

	e, err := c.CreateExecutor(WithExecutorWorkers(2))
	require.NoError(t, err)
	defer func() { _ = e.Destroy() }()

	received := make(chan string, 8)
	require.NoError(t, e.AddSubscription(sub, func(msg any, _ transport.SampleInfo) {
		received <- msg.(*msgs.String).Data
	}))

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Spin(ctx) }()

	require.NoError(t, pub.Publish(&msgs.String{Data: "one"}))
	require.NoError(t, pub.Publish(&msgs.String{Data: "two"}))

	got := make(map[string]bool)
	for len(got) < 2 {
		select {
		case data := <-received:
			got[data] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out with %d of 2 messages", len(got))
		}
	}
	assert.True(t, got["one"])
	assert.True(t, got["two"])

	cancel()
	require.NoError(t, <-done)
}

func TestExecutorDispatchesService(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()

	n, err := c.CreateNode("server", "/")
	require.NoError(t, err)
	defer func() { _ = n.Destroy() }()

	reqTS, respTS := addTypeSupports(t)
	svc, err := n.CreateService("add_two_ints", reqTS, respTS, qos.ServicesDefault())
	require.NoError(t, err)
	defer func() { _ = svc.Destroy() }()

	cl, err := n.CreateClient("add_two_ints", reqTS, respTS, qos.ServicesDefault())
	require.NoError(t, err)
	defer func() { _ = cl.Destroy() }()

	e, err := c.CreateExecutor()
	require.NoError(t, err)
	defer func() { _ = e.Destroy() }()

	require.NoError(t, e.AddService(svc, func(id RequestID, req any) {
		r := req.(*addRequest)
		_ = svc.SendResponse(id, &addResponse{Sum: r.A + r.B})
	}))

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Spin(ctx) }()

	seq, err := cl.SendRequest(&addRequest{A: 4, B: 5})
	require.NoError(t, err)

	var resp addResponse
	deadline := time.Now().Add(2 * time.Second)
	for {
		id, taken, terr := cl.TakeResponse(&resp)
		require.NoError(t, terr)
		if taken {
			assert.Equal(t, seq, id.Sequence)
			assert.Equal(t, int64(9), resp.Sum)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for response")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	require.NoError(t, <-done)
}

func TestExecutorRejectsDoubleSpin(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()

	e, err := c.CreateExecutor()
	require.NoError(t, err)
	defer func() { _ = e.Destroy() }()

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	done := make(chan error, 1)
	go func() { done <- e.Spin(ctx) }()

	// Wait for the first Spin to take ownership before probing
	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.running
	}, time.Second, 5*time.Millisecond)

	assert.Error(t, e.Spin(ctx))

	cancel()
	require.NoError(t, <-done)
}

func TestExecutorAddRejectsNil(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()

	e, err := c.CreateExecutor()
	require.NoError(t, err)
	defer func() { _ = e.Destroy() }()

	assert.Error(t, e.AddSubscription(nil, nil))
	assert.Error(t, e.AddService(nil, nil))
}
