package natstransport

import (
	"encoding/hex"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/qos"
)

// Announcement operations on the graph subject
const (
	opNodeUp   = "node-up"
	opNodeDown = "node-down"
	opPubUp    = "pub-up"
	opPubDown  = "pub-down"
	opSubUp    = "sub-up"
	opSubDown  = "sub-down"
)

// endpointRecord is the wire form of a graph endpoint. The GID travels
// hex-encoded; the profile travels as its plain integer fields.
type endpointRecord struct {
	NodeName      string      `json:"node"`
	NodeNamespace string      `json:"namespace"`
	Topic         string      `json:"topic"`
	TypeName      string      `json:"type"`
	GID           string      `json:"gid"`
	Profile       qos.Profile `json:"profile"`
}

// announcement is one graph change broadcast to the domain
type announcement struct {
	Origin   string          `json:"origin"`
	Op       string          `json:"op"`
	Node     *graph.NodeInfo `json:"node,omitempty"`
	Endpoint *endpointRecord `json:"endpoint,omitempty"`
	GID      string          `json:"gid,omitempty"`
}

func newEndpointAnnouncement(op string, info graph.EndpointInfo) announcement {
	return announcement{
		Op: op,
		Endpoint: &endpointRecord{
			NodeName:      info.NodeName,
			NodeNamespace: info.NodeNamespace,
			Topic:         info.Topic,
			TypeName:      info.TypeName,
			GID:           hex.EncodeToString(info.GID[:]),
			Profile:       info.Profile,
		},
	}
}

func newGIDAnnouncement(op string, gid [16]byte) announcement {
	return announcement{Op: op, GID: hex.EncodeToString(gid[:])}
}

func decodeGID(s string) ([16]byte, bool) {
	var gid [16]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 16 {
		return gid, false
	}
	copy(gid[:], raw)
	return gid, true
}

func (r *endpointRecord) toInfo() (graph.EndpointInfo, bool) {
	gid, ok := decodeGID(r.GID)
	if !ok {
		return graph.EndpointInfo{}, false
	}
	return graph.EndpointInfo{
		NodeName:      r.NodeName,
		NodeNamespace: r.NodeNamespace,
		Topic:         r.Topic,
		TypeName:      r.TypeName,
		GID:           gid,
		Profile:       r.Profile,
	}, true
}

// announce broadcasts one graph change, stamped with the origin id so
// the sender skips its own echo.
func (c *Context) announce(a announcement) error {
	a.Origin = c.origin
	data, err := json.Marshal(a)
	if err != nil {
		return errors.WrapInvalid(err, "natstransport", "announce", "encode announcement")
	}
	if err := c.conn.Publish(c.graphSubject(), data); err != nil {
		return errors.WrapTransient(err, "natstransport", "announce", "publish announcement")
	}
	return nil
}

// subscribeGraph installs the handler applying remote announcements to
// the local graph cache.
func (c *Context) subscribeGraph() error {
	sub, err := c.conn.Subscribe(c.graphSubject(), func(msg *nats.Msg) {
		var a announcement
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			c.logger.Errorf("dropping malformed graph announcement: %v", err)
			return
		}
		if a.Origin == c.origin {
			return
		}
		if c.apply(a) {
			c.graphGuard.Trigger()
			c.notify()
		}
	})
	if err != nil {
		return errors.WrapTransient(err, "natstransport", "New", "subscribe to graph subject")
	}
	c.graphSub = sub
	return nil
}

// apply folds one remote announcement into the local cache and reports
// whether anything changed.
func (c *Context) apply(a announcement) bool {
	switch a.Op {
	case opNodeUp:
		if a.Node == nil {
			return false
		}
		return c.graphCache.RegisterNode(*a.Node) == nil
	case opNodeDown:
		if a.Node == nil {
			return false
		}
		return c.graphCache.UnregisterNode(a.Node.Name, a.Node.Namespace) == nil
	case opPubUp:
		if a.Endpoint == nil {
			return false
		}
		info, ok := a.Endpoint.toInfo()
		return ok && c.graphCache.RegisterPublisher(info) == nil
	case opPubDown:
		gid, ok := decodeGID(a.GID)
		return ok && c.graphCache.UnregisterPublisher(gid) == nil
	case opSubUp:
		if a.Endpoint == nil {
			return false
		}
		info, ok := a.Endpoint.toInfo()
		return ok && c.graphCache.RegisterSubscription(info) == nil
	case opSubDown:
		gid, ok := decodeGID(a.GID)
		return ok && c.graphCache.UnregisterSubscription(gid) == nil
	default:
		c.logger.Debugf("ignoring unknown graph announcement op %q", a.Op)
		return false
	}
}
