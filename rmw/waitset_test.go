package rmw

import (
	gocontext "context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ddsbridge/msgs"
	"github.com/c360/ddsbridge/qos"
	"github.com/c360/ddsbridge/transport/memtransport"
	"github.com/c360/ddsbridge/typesupport"
)

func TestWaitSetDataWakeup(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()
	pub, sub := pubSubPair(t, c, "chatter", msgs.StringTypeSupport(), qos.Default())

	w, err := c.CreateWaitSet()
	require.NoError(t, err)
	defer func() { _ = w.Destroy() }()

	// Endpoint creation raised the graph guard; clear it so the wait
	// blocks until data arrives.
	c.Transport().SetGraphGuard(false)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = pub.Publish(&msgs.String{Data: "wake"})
	}()

	subs := []*Subscription{sub}
	guards := []*GuardCondition{nil}
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, subs, nil, nil, guards))
	require.NotNil(t, subs[0])
	assert.Nil(t, guards[0])

	var out msgs.String
	taken, err := subs[0].Take(&out)
	require.NoError(t, err)
	require.True(t, taken)
	assert.Equal(t, "wake", out.Data)
}

func TestWaitSetTimeout(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()
	_, sub := pubSubPair(t, c, "chatter", msgs.StringTypeSupport(), qos.Default())

	w, err := c.CreateWaitSet()
	require.NoError(t, err)
	defer func() { _ = w.Destroy() }()

	c.Transport().SetGraphGuard(false)

	subs := []*Subscription{sub}
	start := time.Now()
	require.NoError(t, w.Wait(gocontext.Background(), 30*time.Millisecond, subs, nil, nil, nil))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Nil(t, subs[0])
}

func TestWaitSetPoll(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()
	pub, sub := pubSubPair(t, c, "chatter", msgs.StringTypeSupport(), qos.Default())

	w, err := c.CreateWaitSet()
	require.NoError(t, err)
	defer func() { _ = w.Destroy() }()

	c.Transport().SetGraphGuard(false)

	subs := []*Subscription{sub}
	require.NoError(t, w.Wait(gocontext.Background(), 0, subs, nil, nil, nil))
	assert.Nil(t, subs[0])

	require.NoError(t, pub.Publish(&msgs.String{Data: "queued"}))
	subs[0] = sub
	require.NoError(t, w.Wait(gocontext.Background(), 0, subs, nil, nil, nil))
	assert.NotNil(t, subs[0])
}

func TestWaitSetGuardWakeupStaysTriggered(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()

	g, err := c.CreateGuardCondition()
	require.NoError(t, err)
	defer func() { _ = g.Destroy() }()

	w, err := c.CreateWaitSet()
	require.NoError(t, err)
	defer func() { _ = w.Destroy() }()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = g.Trigger()
	}()

	guards := []*GuardCondition{g}
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, nil, nil, nil, guards))
	require.NotNil(t, guards[0])

	// Wait reports the guard but never re-arms it
	assert.True(t, g.IsTriggered())
	g.Reset()
	assert.False(t, g.IsTriggered())
}

func TestWaitSetServiceAndClientReadiness(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()

	n, err := c.CreateNode("calc", "/")
	require.NoError(t, err)
	defer func() { _ = n.Destroy() }()

	reqTS, respTS := addTypeSupports(t)
	svc, err := n.CreateService("add_two_ints", reqTS, respTS, qos.ServicesDefault())
	require.NoError(t, err)
	defer func() { _ = svc.Destroy() }()
	cl, err := n.CreateClient("add_two_ints", reqTS, respTS, qos.ServicesDefault())
	require.NoError(t, err)
	defer func() { _ = cl.Destroy() }()

	w, err := c.CreateWaitSet()
	require.NoError(t, err)
	defer func() { _ = w.Destroy() }()

	_, err = cl.SendRequest(&addRequest{A: 1, B: 2})
	require.NoError(t, err)

	services := []*Service{svc}
	clients := []*Client{cl}
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, nil, services, clients, nil))
	require.NotNil(t, services[0])
	assert.Nil(t, clients[0])

	var req addRequest
	id, ok, err := svc.TakeRequest(&req)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, svc.SendResponse(id, &addResponse{Sum: req.A + req.B}))

	services[0] = svc
	clients[0] = cl
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, nil, services, clients, nil))
	assert.Nil(t, services[0])
	require.NotNil(t, clients[0])
}

func TestWaitSetCallbackRunsOnReady(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()
	pub, sub := pubSubPair(t, c, "chatter", msgs.StringTypeSupport(), qos.Default())

	var calls atomic.Int32
	sub.SetCallback(func(count int) {
		calls.Add(int32(count))
	})

	w, err := c.CreateWaitSet()
	require.NoError(t, err)
	defer func() { _ = w.Destroy() }()

	require.NoError(t, pub.Publish(&msgs.String{Data: "cb"}))
	subs := []*Subscription{sub}
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, subs, nil, nil, nil))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWaitSetServiceAndClientCallbacks(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()

	n, err := c.CreateNode("calc", "/")
	require.NoError(t, err)
	defer func() { _ = n.Destroy() }()

	reqTS, respTS := addTypeSupports(t)
	svc, err := n.CreateService("add_two_ints", reqTS, respTS, qos.ServicesDefault())
	require.NoError(t, err)
	defer func() { _ = svc.Destroy() }()
	cl, err := n.CreateClient("add_two_ints", reqTS, respTS, qos.ServicesDefault())
	require.NoError(t, err)
	defer func() { _ = cl.Destroy() }()

	var svcCalls, clCalls atomic.Int32
	svc.SetCallback(func(count int) { svcCalls.Add(int32(count)) })
	cl.SetCallback(func(count int) { clCalls.Add(int32(count)) })

	w, err := c.CreateWaitSet()
	require.NoError(t, err)
	defer func() { _ = w.Destroy() }()

	_, err = cl.SendRequest(&addRequest{A: 1, B: 2})
	require.NoError(t, err)

	services := []*Service{svc}
	clients := []*Client{cl}
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, nil, services, clients, nil))
	assert.Equal(t, int32(1), svcCalls.Load())
	assert.Equal(t, int32(0), clCalls.Load())

	var req addRequest
	id, ok, err := svc.TakeRequest(&req)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, svc.SendResponse(id, &addResponse{Sum: req.A + req.B}))

	services[0] = svc
	clients[0] = cl
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, nil, services, clients, nil))
	assert.Equal(t, int32(1), svcCalls.Load())
	assert.Equal(t, int32(1), clCalls.Load())

	// A cleared callback no longer fires
	cl.SetCallback(nil)
	_, err = cl.SendRequest(&addRequest{A: 3, B: 4})
	require.NoError(t, err)
	services[0] = nil
	clients[0] = cl
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, nil, services, clients, nil))
	assert.Equal(t, int32(1), clCalls.Load())
}

func TestWaitSetShutdownReturnsEmpty(t *testing.T) {
	c := newTestContext(t)
	_, sub := pubSubPair(t, c, "chatter", msgs.StringTypeSupport(), qos.Default())

	w, err := c.CreateWaitSet()
	require.NoError(t, err)

	require.NoError(t, c.Shutdown())

	subs := []*Subscription{sub}
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, subs, nil, nil, nil))
	assert.Nil(t, subs[0])
}

func TestWaitSetShmPrecedence(t *testing.T) {
	tc, err := memtransport.New(t.Name(), memtransport.WithShmTopics("imu"))
	require.NoError(t, err)
	c, err := Init(WithName(t.Name()), WithTransport(tc))
	require.NoError(t, err)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
		_ = tc.Close()
	}()

	n, err := c.CreateNode("sensors", "/")
	require.NoError(t, err)
	defer func() { _ = n.Destroy() }()

	type imuSample struct {
		X float64
		Y float64
		Z float64
	}
	desc, err := typesupport.DescriptorFor("sensor_msgs__msg", "Imu", &imuSample{})
	require.NoError(t, err)
	imuTS := typesupport.New(desc, func() any { return &imuSample{} })

	imuPub, err := n.CreatePublisher("imu", imuTS, qos.SensorData())
	require.NoError(t, err)
	defer func() { _ = imuPub.Destroy() }()
	imuSub, err := n.CreateSubscription("imu", imuTS, qos.SensorData())
	require.NoError(t, err)
	defer func() { _ = imuSub.Destroy() }()

	chatterPub, chatterSub := pubSubPair(t, c, "chatter", msgs.StringTypeSupport(), qos.Default())
	require.NoError(t, chatterPub.Publish(&msgs.String{Data: "also ready"}))
	require.NoError(t, imuPub.Publish(&imuSample{X: 1, Y: 2, Z: 3}))

	w, err := c.CreateWaitSet()
	require.NoError(t, err)
	defer func() { _ = w.Destroy() }()

	// Both have data, but the shared-memory slot wins the wait: only
	// the imu subscription reports ready.
	subs := []*Subscription{chatterSub, imuSub}
	require.NoError(t, w.Wait(gocontext.Background(), time.Second, subs, nil, nil, nil))
	assert.Nil(t, subs[0])
	require.NotNil(t, subs[1])

	var out imuSample
	taken, err := subs[1].Take(&out)
	require.NoError(t, err)
	require.True(t, taken)
	assert.Equal(t, imuSample{X: 1, Y: 2, Z: 3}, out)
}
