package graph

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/qos"
)

func gid(tail byte) [16]byte {
	var g [16]byte
	g[15] = tail
	return g
}

func pubInfo(node, topic string, tail byte) EndpointInfo {
	return EndpointInfo{
		NodeName:      node,
		NodeNamespace: "/",
		Topic:         topic,
		TypeName:      "std_msgs/msg/String",
		GID:           gid(tail),
		Profile:       qos.Default(),
	}
}

func TestCache_NodeRegistration(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.RegisterNode(NodeInfo{Name: "talker", Namespace: "/"}))

	assert.True(t, c.NodeExists("talker", "/"))
	assert.False(t, c.NodeExists("listener", "/"))

	require.NoError(t, c.UnregisterNode("talker", "/"))
	assert.False(t, c.NodeExists("talker", "/"))

	err := c.UnregisterNode("talker", "/")
	assert.ErrorIs(t, err, errors.ErrNodeNameNonExistent)
}

func TestCache_RejectsEmptyNames(t *testing.T) {
	c := NewCache()
	assert.Error(t, c.RegisterNode(NodeInfo{}))
	assert.Error(t, c.RegisterPublisher(EndpointInfo{NodeName: "n"}))
}

func TestCache_VersionMonotonicity(t *testing.T) {
	c := NewCache()

	v := c.Version()
	require.NoError(t, c.RegisterNode(NodeInfo{Name: "talker", Namespace: "/"}))
	assert.Greater(t, c.Version(), v)

	v = c.Version()
	require.NoError(t, c.RegisterPublisher(pubInfo("talker", "/chatter", 1)))
	assert.Greater(t, c.Version(), v)

	v = c.Version()
	require.NoError(t, c.UnregisterPublisher(gid(1)))
	assert.Greater(t, c.Version(), v)

	v = c.Version()
	require.NoError(t, c.UnregisterNode("talker", "/"))
	assert.Greater(t, c.Version(), v)
}

func TestCache_EndpointLifecycle(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.RegisterNode(NodeInfo{Name: "talker", Namespace: "/"}))
	require.NoError(t, c.RegisterPublisher(pubInfo("talker", "/chatter", 1)))
	require.NoError(t, c.RegisterSubscription(pubInfo("talker", "/chatter", 2)))

	assert.Equal(t, 1, c.CountPublishers("/chatter"))
	assert.Equal(t, 1, c.CountSubscriptions("/chatter"))
	assert.Equal(t, 0, c.CountPublishers("/other"))

	require.NoError(t, c.UnregisterPublisher(gid(1)))
	assert.Equal(t, 0, c.CountPublishers("/chatter"))

	assert.ErrorIs(t, c.UnregisterPublisher(gid(1)), errors.ErrNotRegistered)
}

func TestCache_ImplicitNodeForRemoteEndpoint(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.RegisterPublisher(pubInfo("remote", "/chatter", 7)))
	assert.True(t, c.NodeExists("remote", "/"))
}

func TestCache_ForEachTopic(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.RegisterPublisher(pubInfo("a", "/chatter", 1)))
	sub := pubInfo("b", "/chatter", 2)
	sub.TypeName = "std_msgs/msg/WString"
	require.NoError(t, c.RegisterSubscription(sub))
	require.NoError(t, c.RegisterPublisher(pubInfo("a", "/rosout", 3)))

	got := make(map[string][]string)
	_, count := c.ForEachTopic(func(topic string, types []string) bool {
		got[topic] = types
		return true
	})

	want := map[string][]string{
		"/chatter": {"std_msgs/msg/String", "std_msgs/msg/WString"},
		"/rosout":  {"std_msgs/msg/String"},
	}
	assert.Equal(t, 2, count)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("topic map mismatch (-want +got):\n%s", diff)
	}
}

func TestCache_VisitorStopsEarly(t *testing.T) {
	c := NewCache()
	for i := 0; i < 5; i++ {
		require.NoError(t, c.RegisterNode(NodeInfo{Name: fmt.Sprintf("n%d", i), Namespace: "/"}))
	}

	_, count := c.ForEachNode(func(NodeInfo) bool { return false })
	assert.Equal(t, 1, count)
}

func TestCollect_ReturnsConsistentSnapshot(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.RegisterNode(NodeInfo{Name: "talker", Namespace: "/"}))
	require.NoError(t, c.RegisterNode(NodeInfo{Name: "listener", Namespace: "/"}))

	nodes, err := Collect("nodes", c.ForEachNode)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

// TestCollect_UnderChurn toggles a publisher's existence while
// enumerating topics; every call must return a clean snapshot or
// ErrGraphChanged, never a torn result.
func TestCollect_UnderChurn(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.RegisterNode(NodeInfo{Name: "stable", Namespace: "/"}))
	require.NoError(t, c.RegisterPublisher(pubInfo("stable", "/steady", 1)))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tail := byte(2)
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = c.RegisterPublisher(pubInfo("flapper", "/flappy", tail))
			_ = c.UnregisterPublisher(gid(tail))
		}
	}()

	for i := 0; i < 1000; i++ {
		topics, err := Collect("topics and types", func(fn func(string) bool) (uint64, int) {
			return c.ForEachTopic(func(topic string, _ []string) bool {
				return fn(topic)
			})
		})
		if err != nil {
			assert.ErrorIs(t, err, errors.ErrGraphChanged)
			continue
		}
		// The steady topic must always be present exactly once
		steady := 0
		for _, topic := range topics {
			if topic == "/steady" {
				steady++
			}
		}
		assert.Equal(t, 1, steady, "iteration %d returned %v", i, topics)
	}

	close(done)
	wg.Wait()
}

func TestCollect_ErrorMessage(t *testing.T) {
	// A visitor that never reports a stable version
	v := uint64(0)
	visit := func(fn func(int) bool) (uint64, int) {
		v++
		fn(1)
		return v, 1
	}

	_, err := Collect("topics and types", visit)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrGraphChanged)
	assert.Contains(t, err.Error(), "graph changed while collecting topics and types")
}
