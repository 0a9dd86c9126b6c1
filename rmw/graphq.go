package rmw

import (
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
)

// NodeName identifies one discovered node
type NodeName struct {
	Name      string
	Namespace string
	Enclave   string
}

// TopicEndpoint pairs a topic with its advertised type names
type TopicEndpoint struct {
	Name  string
	Types []string
}

// GetNodeNames enumerates the discovered nodes
func (c *Context) GetNodeNames() ([]NodeName, error) {
	if err := c.checkAlive("GetNodeNames"); err != nil {
		return nil, err
	}
	return graph.Collect("node names", func(fn func(NodeName) bool) (uint64, int) {
		return c.Graph().ForEachNode(func(info graph.NodeInfo) bool {
			return fn(NodeName{Name: info.Name, Namespace: info.Namespace, Enclave: info.Enclave})
		})
	})
}

// GetNodeNamesWithEnclaves is GetNodeNames; the enclave is always
// carried on the record, so both calls share one shape.
func (c *Context) GetNodeNamesWithEnclaves() ([]NodeName, error) {
	return c.GetNodeNames()
}

// GetTopicNamesAndTypes enumerates topics with at least one endpoint
func (c *Context) GetTopicNamesAndTypes() ([]TopicEndpoint, error) {
	if err := c.checkAlive("GetTopicNamesAndTypes"); err != nil {
		return nil, err
	}
	return graph.Collect("topic names and types", func(fn func(TopicEndpoint) bool) (uint64, int) {
		return c.Graph().ForEachTopic(func(topic string, types []string) bool {
			return fn(TopicEndpoint{Name: topic, Types: types})
		})
	})
}

// GetPublishersInfoByTopic enumerates publisher endpoints on a topic
func (c *Context) GetPublishersInfoByTopic(topic string) ([]graph.EndpointInfo, error) {
	if err := c.checkAlive("GetPublishersInfoByTopic"); err != nil {
		return nil, err
	}
	return graph.Collect("publishers on "+topic, func(fn func(graph.EndpointInfo) bool) (uint64, int) {
		return c.Graph().ForEachPublisher(topic, fn)
	})
}

// GetSubscriptionsInfoByTopic enumerates subscription endpoints on a
// topic
func (c *Context) GetSubscriptionsInfoByTopic(topic string) ([]graph.EndpointInfo, error) {
	if err := c.checkAlive("GetSubscriptionsInfoByTopic"); err != nil {
		return nil, err
	}
	return graph.Collect("subscriptions on "+topic, func(fn func(graph.EndpointInfo) bool) (uint64, int) {
		return c.Graph().ForEachSubscription(topic, fn)
	})
}

// CountPublishers counts graph publishers on a topic
func (c *Context) CountPublishers(topic string) (int, error) {
	if err := c.checkAlive("CountPublishers"); err != nil {
		return 0, err
	}
	return c.Graph().CountPublishers(topic), nil
}

// CountSubscribers counts graph subscriptions on a topic
func (c *Context) CountSubscribers(topic string) (int, error) {
	if err := c.checkAlive("CountSubscribers"); err != nil {
		return 0, err
	}
	return c.Graph().CountSubscriptions(topic), nil
}

// NodeExists reports whether a node with the given name and namespace
// is currently in the graph. The error distinguishes an unknown name
// for callers that treat absence as fatal.
func (c *Context) NodeExists(name, namespace string) (bool, error) {
	if err := c.checkAlive("NodeExists"); err != nil {
		return false, err
	}
	if c.Graph().NodeExists(name, namespace) {
		return true, nil
	}
	return false, errors.WrapInvalid(errors.ErrNodeNameNonExistent, "Context", "NodeExists", "look up node")
}
