package graph

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/qos"
)

// NodeInfo identifies one node in the graph
type NodeInfo struct {
	Name      string
	Namespace string
	Enclave   string
}

// EndpointInfo is one publisher or subscription record in the graph
type EndpointInfo struct {
	NodeName      string
	NodeNamespace string
	Topic         string
	TypeName      string
	GID           [16]byte
	Profile       qos.Profile
}

type nodeKey struct {
	name      string
	namespace string
}

type nodeRecord struct {
	info          NodeInfo
	publishers    []EndpointInfo
	subscriptions []EndpointInfo
}

// Cache is the process-local node and endpoint index. The zero value is
// not usable; call NewCache.
type Cache struct {
	mu      sync.Mutex
	version atomic.Uint64
	nodes   map[nodeKey]*nodeRecord
}

// NewCache creates an empty graph cache at version 0
func NewCache() *Cache {
	return &Cache{nodes: make(map[nodeKey]*nodeRecord)}
}

// Version returns the current cache version. Every successful mutation
// strictly increases it.
func (c *Cache) Version() uint64 {
	return c.version.Load()
}

// RegisterNode adds or updates a node record
func (c *Cache) RegisterNode(info NodeInfo) error {
	if info.Name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("empty node name"), "Cache", "RegisterNode", "validate node")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := nodeKey{info.Name, info.Namespace}
	if rec, ok := c.nodes[key]; ok {
		rec.info = info
	} else {
		c.nodes[key] = &nodeRecord{info: info}
	}
	c.version.Add(1)
	return nil
}

// UnregisterNode removes a node record and all its endpoints
func (c *Cache) UnregisterNode(name, namespace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := nodeKey{name, namespace}
	if _, ok := c.nodes[key]; !ok {
		return errors.ErrNodeNameNonExistent
	}
	delete(c.nodes, key)
	c.version.Add(1)
	return nil
}

// NodeExists reports whether a node record is present
func (c *Cache) NodeExists(name, namespace string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.nodes[nodeKey{name, namespace}]
	return ok
}

// RegisterPublisher adds a publisher endpoint record. The owning node
// record is created implicitly when absent (remote endpoints can be
// discovered before their node announcement arrives).
func (c *Cache) RegisterPublisher(info EndpointInfo) error {
	return c.registerEndpoint(info, false)
}

// RegisterSubscription adds a subscription endpoint record
func (c *Cache) RegisterSubscription(info EndpointInfo) error {
	return c.registerEndpoint(info, true)
}

func (c *Cache) registerEndpoint(info EndpointInfo, subscription bool) error {
	if info.Topic == "" {
		return errors.WrapInvalid(
			fmt.Errorf("empty topic"), "Cache", "RegisterEndpoint", "validate endpoint")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := nodeKey{info.NodeName, info.NodeNamespace}
	rec, ok := c.nodes[key]
	if !ok {
		rec = &nodeRecord{info: NodeInfo{Name: info.NodeName, Namespace: info.NodeNamespace}}
		c.nodes[key] = rec
	}
	if subscription {
		rec.subscriptions = append(rec.subscriptions, info)
	} else {
		rec.publishers = append(rec.publishers, info)
	}
	c.version.Add(1)
	return nil
}

// UnregisterPublisher removes the publisher endpoint with the given GID
func (c *Cache) UnregisterPublisher(gid [16]byte) error {
	return c.unregisterEndpoint(gid, false)
}

// UnregisterSubscription removes the subscription endpoint with the given GID
func (c *Cache) UnregisterSubscription(gid [16]byte) error {
	return c.unregisterEndpoint(gid, true)
}

func (c *Cache) unregisterEndpoint(gid [16]byte, subscription bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range c.nodes {
		list := &rec.publishers
		if subscription {
			list = &rec.subscriptions
		}
		for i, ep := range *list {
			if ep.GID == gid {
				// Swap-remove; endpoint order inside a node is not observable
				(*list)[i] = (*list)[len(*list)-1]
				*list = (*list)[:len(*list)-1]
				c.version.Add(1)
				return nil
			}
		}
	}
	return errors.ErrNotRegistered
}

// snapshotNodes copies the current records under the lock. Visitors walk
// the copy so user callbacks never run with the lock held.
func (c *Cache) snapshotNodes() []*nodeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*nodeRecord, 0, len(c.nodes))
	for _, rec := range c.nodes {
		cp := &nodeRecord{
			info:          rec.info,
			publishers:    append([]EndpointInfo(nil), rec.publishers...),
			subscriptions: append([]EndpointInfo(nil), rec.subscriptions...),
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].info.Namespace != out[j].info.Namespace {
			return out[i].info.Namespace < out[j].info.Namespace
		}
		return out[i].info.Name < out[j].info.Name
	})
	return out
}

// ForEachNode visits every node record. Returning false from fn stops
// the walk. The returned version is sampled after the walk; callers
// comparing it against a pre-walk version detect concurrent mutation.
func (c *Cache) ForEachNode(fn func(NodeInfo) bool) (version uint64, count int) {
	for _, rec := range c.snapshotNodes() {
		count++
		if !fn(rec.info) {
			break
		}
	}
	return c.version.Load(), count
}

// ForEachTopic visits every known topic with its sorted set of resolved
// type names
func (c *Cache) ForEachTopic(fn func(topic string, types []string) bool) (version uint64, count int) {
	topics := make(map[string]map[string]struct{})
	for _, rec := range c.snapshotNodes() {
		for _, ep := range rec.publishers {
			addTopicType(topics, ep)
		}
		for _, ep := range rec.subscriptions {
			addTopicType(topics, ep)
		}
	}

	names := make([]string, 0, len(topics))
	for t := range topics {
		names = append(names, t)
	}
	sort.Strings(names)

	for _, t := range names {
		types := make([]string, 0, len(topics[t]))
		for ty := range topics[t] {
			types = append(types, ty)
		}
		sort.Strings(types)
		count++
		if !fn(t, types) {
			break
		}
	}
	return c.version.Load(), count
}

func addTopicType(topics map[string]map[string]struct{}, ep EndpointInfo) {
	set, ok := topics[ep.Topic]
	if !ok {
		set = make(map[string]struct{})
		topics[ep.Topic] = set
	}
	if ep.TypeName != "" {
		set[ep.TypeName] = struct{}{}
	}
}

// ForEachPublisher visits publisher endpoints, filtered by topic when
// topic is non-empty
func (c *Cache) ForEachPublisher(topic string, fn func(EndpointInfo) bool) (version uint64, count int) {
	return c.forEachEndpoint(topic, false, fn)
}

// ForEachSubscription visits subscription endpoints, filtered by topic
// when topic is non-empty
func (c *Cache) ForEachSubscription(topic string, fn func(EndpointInfo) bool) (version uint64, count int) {
	return c.forEachEndpoint(topic, true, fn)
}

func (c *Cache) forEachEndpoint(
	topic string,
	subscription bool,
	fn func(EndpointInfo) bool,
) (uint64, int) {
	count := 0
walk:
	for _, rec := range c.snapshotNodes() {
		list := rec.publishers
		if subscription {
			list = rec.subscriptions
		}
		for _, ep := range list {
			if topic != "" && ep.Topic != topic {
				continue
			}
			count++
			if !fn(ep) {
				break walk
			}
		}
	}
	return c.version.Load(), count
}

// CountPublishers returns the number of publisher endpoints on topic
func (c *Cache) CountPublishers(topic string) int {
	_, n := c.ForEachPublisher(topic, func(EndpointInfo) bool { return true })
	return n
}

// CountSubscriptions returns the number of subscription endpoints on topic
func (c *Cache) CountSubscriptions(topic string) int {
	_, n := c.ForEachSubscription(topic, func(EndpointInfo) bool { return true })
	return n
}
