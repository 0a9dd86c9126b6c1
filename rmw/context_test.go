package rmw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/msgs"
	"github.com/c360/ddsbridge/qos"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	c, err := Init(WithName(t.Name()))
	require.NoError(t, err)
	return c
}

func TestInitDefaults(t *testing.T) {
	c := newTestContext(t)
	assert.Equal(t, t.Name(), c.Name())
	assert.NotNil(t, c.Transport())
	assert.NotNil(t, c.Graph())
	assert.False(t, c.IsShutdown())

	require.NoError(t, c.Shutdown())
	require.NoError(t, c.Fini())
}

func TestFiniRequiresNodeTeardown(t *testing.T) {
	c := newTestContext(t)
	n, err := c.CreateNode("talker", "/")
	require.NoError(t, err)

	require.NoError(t, c.Shutdown())
	err = c.Fini()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNodesRemain))

	require.NoError(t, n.Destroy())
	require.NoError(t, c.Fini())

	err = c.Fini()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyDestroyed))
}

func TestShutdownRejectsCreation(t *testing.T) {
	c := newTestContext(t)
	require.NoError(t, c.Shutdown())

	_, err := c.CreateNode("late", "/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrContextShutdown))

	err = c.Shutdown()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyDestroyed))
}

func TestNodeDefaultsAndEnclave(t *testing.T) {
	c, err := Init(WithName(t.Name()), WithEnclave("/secure"))
	require.NoError(t, err)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()

	n, err := c.CreateNode("talker", "")
	require.NoError(t, err)
	defer func() { _ = n.Destroy() }()
	assert.Equal(t, "/", n.Namespace())
	assert.Equal(t, "/secure", n.Enclave())

	m, err := c.CreateNode("listener", "/demo", WithNodeEnclave("/other"))
	require.NoError(t, err)
	defer func() { _ = m.Destroy() }()
	assert.Equal(t, "/other", m.Enclave())

	_, err = c.CreateNode("", "/")
	require.Error(t, err)
}

func TestGraphQueries(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()

	n, err := c.CreateNode("talker", "/demo")
	require.NoError(t, err)
	defer func() { _ = n.Destroy() }()

	p, err := n.CreatePublisher("chatter", msgs.StringTypeSupport(), qos.Default())
	require.NoError(t, err)
	defer func() { _ = p.Destroy() }()

	names, err := c.GetNodeNames()
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "talker", names[0].Name)
	assert.Equal(t, "/demo", names[0].Namespace)

	topics, err := c.GetTopicNamesAndTypes()
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "chatter", topics[0].Name)
	assert.Contains(t, topics[0].Types, "std_msgs/msg/String")

	count, err := c.CountPublishers("chatter")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = c.CountSubscribers("chatter")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	infos, err := c.GetPublishersInfoByTopic("chatter")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "talker", infos[0].NodeName)

	ok, err := c.NodeExists("talker", "/demo")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.NodeExists("ghost", "/demo")
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNodeNameNonExistent))
}

func TestNodeDestroyCleansLeakedEndpoints(t *testing.T) {
	c := newTestContext(t)
	defer func() {
		_ = c.Shutdown()
		_ = c.Fini()
	}()

	n, err := c.CreateNode("leaky", "/")
	require.NoError(t, err)

	_, err = n.CreatePublisher("chatter", msgs.StringTypeSupport(), qos.Default())
	require.NoError(t, err)
	_, err = n.CreateSubscription("chatter", msgs.StringTypeSupport(), qos.Default())
	require.NoError(t, err)

	require.NoError(t, n.Destroy())
	assert.Equal(t, 0, c.Graph().CountPublishers("chatter"))
	assert.Equal(t, 0, c.Graph().CountSubscriptions("chatter"))
	assert.False(t, c.Graph().NodeExists("leaky", "/"))
}
