package memtransport

import (
	gocontext "context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/transport"
)

func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	c, err := New("test_participant", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestWriteTakeRoundTrip(t *testing.T) {
	c := newTestContext(t)

	r, err := c.CreateReader("chatter", transport.DefaultQoS())
	require.NoError(t, err)
	w, err := c.CreateWriter("chatter", transport.DefaultQoS())
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("payload")))
	assert.True(t, r.HasData())

	buf := make([]byte, 64)
	n, info, err := r.Take(buf)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))
	assert.NotZero(t, info.SourceTimestampMs)

	_, _, err = r.Take(buf)
	assert.True(t, errors.Is(err, errors.ErrNoSample))
}

func TestTakeShortBufferKeepsSample(t *testing.T) {
	c := newTestContext(t)

	r, err := c.CreateReader("chatter", transport.DefaultQoS())
	require.NoError(t, err)
	w, err := c.CreateWriter("chatter", transport.DefaultQoS())
	require.NoError(t, err)

	require.NoError(t, w.Write(make([]byte, 100)))

	small := make([]byte, 10)
	_, _, err = r.Take(small)
	require.Error(t, err)
	require.Equal(t, 100, errors.RequiredSize(err))

	// The sample must still be takeable after growing
	grown := make([]byte, errors.RequiredSize(err))
	n, _, err := r.Take(grown)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}

func TestReliableBackpressure(t *testing.T) {
	c := newTestContext(t)

	q := transport.DefaultQoS().Reliable().HistoryDepth(1)
	_, err := c.CreateReader("camera", q)
	require.NoError(t, err)
	w, err := c.CreateWriter("camera", q)
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("a")))
	err = w.Write([]byte("b"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrWouldBlock))
	assert.True(t, errors.IsTransient(err))
}

func TestRefusedWriteDeliversNothing(t *testing.T) {
	c := newTestContext(t)

	q := transport.DefaultQoS().Reliable().HistoryDepth(1)
	full, err := c.CreateReader("camera", q)
	require.NoError(t, err)
	open, err := c.CreateReader("camera", transport.DefaultQoS().Reliable().HistoryDepth(10))
	require.NoError(t, err)

	w, err := c.CreateWriter("camera", q)
	require.NoError(t, err)
	require.NoError(t, w.Write([]byte("first")))

	// The depth-1 reader is now full. Retrying one refused write must
	// not re-deliver it to the reader with room.
	for i := 0; i < 5; i++ {
		err = w.Write([]byte("second"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrWouldBlock))
	}

	buf := make([]byte, 16)
	n, _, err := open.Take(buf)
	require.NoError(t, err)
	assert.Equal(t, "first", string(buf[:n]))
	_, _, err = open.Take(buf)
	assert.True(t, errors.Is(err, errors.ErrNoSample))

	n, _, err = full.Take(buf)
	require.NoError(t, err)
	assert.Equal(t, "first", string(buf[:n]))
}

func TestRefusedWriteRetainsNothing(t *testing.T) {
	c := newTestContext(t)

	q := transport.DefaultQoS().Reliable().TransientLocal().HistoryDepth(1)
	_, err := c.CreateReader("map", q)
	require.NoError(t, err)
	w, err := c.CreateWriter("map", q)
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("tile1")))
	for i := 0; i < 3; i++ {
		require.Error(t, w.Write([]byte("tile2")))
	}

	// A late joiner replays accepted samples only
	late, err := c.CreateReader("map", q)
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, _, err := late.Take(buf)
	require.NoError(t, err)
	assert.Equal(t, "tile1", string(buf[:n]))
	_, _, err = late.Take(buf)
	assert.True(t, errors.Is(err, errors.ErrNoSample))
}

func TestBestEffortDropsOldest(t *testing.T) {
	c := newTestContext(t)

	q := transport.DefaultQoS().BestEffort().HistoryDepth(1)
	r, err := c.CreateReader("camera", q)
	require.NoError(t, err)
	w, err := c.CreateWriter("camera", q)
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("old")))
	require.NoError(t, w.Write([]byte("new")))

	buf := make([]byte, 16)
	n, _, err := r.Take(buf)
	require.NoError(t, err)
	assert.Equal(t, "new", string(buf[:n]))
}

func TestTransientLocalReplay(t *testing.T) {
	c := newTestContext(t)

	q := transport.DefaultQoS().Reliable().TransientLocal().HistoryDepth(5)
	w, err := c.CreateWriter("map", q)
	require.NoError(t, err)
	require.NoError(t, w.Write([]byte("tile1")))
	require.NoError(t, w.Write([]byte("tile2")))

	// A late joiner still receives the retained history
	r, err := c.CreateReader("map", q)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, _, err := r.Take(buf)
	require.NoError(t, err)
	assert.Equal(t, "tile1", string(buf[:n]))
	n, _, err = r.Take(buf)
	require.NoError(t, err)
	assert.Equal(t, "tile2", string(buf[:n]))

	// Volatile late joiners do not
	rv, err := c.CreateReader("map", transport.DefaultQoS().Volatile())
	require.NoError(t, err)
	assert.False(t, rv.HasData())
}

func TestTopicNormalization(t *testing.T) {
	c := newTestContext(t)

	r, err := c.CreateReader("/chatter", transport.DefaultQoS())
	require.NoError(t, err)
	w, err := c.CreateWriter("chatter", transport.DefaultQoS())
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("x")))
	assert.True(t, r.HasData())
}

func TestWaitReadersPollAndData(t *testing.T) {
	c := newTestContext(t)

	r, err := c.CreateReader("chatter", transport.DefaultQoS())
	require.NoError(t, err)
	w, err := c.CreateWriter("chatter", transport.DefaultQoS())
	require.NoError(t, err)

	// Poll with nothing pending
	ready, gg, err := c.WaitReaders(gocontext.Background(), 0, []transport.Reader{r, nil})
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.False(t, gg)

	// A concurrent write wakes a blocking wait
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = w.Write([]byte("wake"))
	}()
	ready, _, err = c.WaitReaders(gocontext.Background(), time.Second, []transport.Reader{nil, r})
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Same(t, r, ready[0])
}

func TestWaitReadersTimeout(t *testing.T) {
	c := newTestContext(t)

	r, err := c.CreateReader("quiet", transport.DefaultQoS())
	require.NoError(t, err)

	start := time.Now()
	ready, gg, err := c.WaitReaders(gocontext.Background(), 30*time.Millisecond, []transport.Reader{r})
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.False(t, gg)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWaitReadersGuardWakeup(t *testing.T) {
	c := newTestContext(t)

	g, err := c.CreateGuardCondition()
	require.NoError(t, err)
	key, err := c.AttachGuardCondition(g)
	require.NoError(t, err)
	defer func() { _ = c.DetachGuardCondition(key) }()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Trigger()
	}()
	ready, gg, err := c.WaitReaders(gocontext.Background(), time.Second, nil)
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.False(t, gg)
	assert.True(t, g.IsTriggered())
}

func TestWaitReadersGraphGuard(t *testing.T) {
	c := newTestContext(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.SetGraphGuard(true)
	}()
	_, gg, err := c.WaitReaders(gocontext.Background(), time.Second, nil)
	require.NoError(t, err)
	assert.True(t, gg)

	c.SetGraphGuard(false)
	assert.False(t, c.GraphGuardCondition().IsTriggered())
}

func TestShmFastPath(t *testing.T) {
	c := newTestContext(t, WithShmTopics("lidar"))

	w, err := c.CreateWriter("/lidar", transport.DefaultQoS())
	require.NoError(t, err)

	assert.False(t, c.ShmHasData("lidar"))
	require.NoError(t, w.Write([]byte("scan")))
	assert.True(t, c.ShmHasData("/lidar"))

	buf := make([]byte, 16)
	n, ok, err := c.ShmTryTake("lidar", buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "scan", string(buf[:n]))

	_, ok, err = c.ShmTryTake("lidar", buf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDestroyLifecycle(t *testing.T) {
	c := newTestContext(t)

	r, err := c.CreateReader("chatter", transport.DefaultQoS())
	require.NoError(t, err)
	require.NoError(t, c.DestroyReader(r))
	err = c.DestroyReader(r)
	assert.True(t, errors.Is(err, errors.ErrAlreadyDestroyed))

	w, err := c.CreateWriter("chatter", transport.DefaultQoS())
	require.NoError(t, err)
	require.NoError(t, c.DestroyWriter(w))
	assert.True(t, errors.Is(c.DestroyWriter(w), errors.ErrAlreadyDestroyed))

	other := newTestContext(t)
	r2, err := other.CreateReader("chatter", transport.DefaultQoS())
	require.NoError(t, err)
	err = c.DestroyReader(r2)
	assert.True(t, errors.Is(err, errors.ErrIncorrectImplementation))
}

func TestCloseRejectsFurtherUse(t *testing.T) {
	c, err := New("closing")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.CreateReader("chatter", transport.DefaultQoS())
	assert.True(t, errors.Is(err, errors.ErrContextShutdown))
	assert.True(t, errors.Is(c.Close(), errors.ErrAlreadyDestroyed))

	_, _, err = c.WaitReaders(gocontext.Background(), time.Second, nil)
	assert.True(t, errors.Is(err, errors.ErrContextShutdown))
}

func TestGraphRegistrationTriggersGuard(t *testing.T) {
	c := newTestContext(t)
	require.NoError(t, c.RegisterNode(graph.NodeInfo{Name: "talker", Namespace: "/"}))
	assert.True(t, c.GraphGuardCondition().IsTriggered())

	v1 := c.Graph().Version()
	require.NoError(t, c.UnregisterNode("talker", "/"))
	assert.Greater(t, c.Graph().Version(), v1)
}
