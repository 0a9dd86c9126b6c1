package rmw

import (
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/transport"
)

// Node is a named endpoint owner inside a context.
type Node struct {
	ctx       *Context
	name      string
	namespace string
	enclave   string

	publishers    endpointSet
	subscriptions endpointSet

	// Live endpoint handles, kept so a node teardown can unregister
	// graph entries that the caller leaked.
	livePubs []*Publisher
	liveSubs []*Subscription
	liveSvcs []*Service
	liveClis []*Client

	destroyed bool
}

// NodeOption configures a node at creation
type NodeOption func(*Node)

// WithNodeEnclave overrides the context enclave for this node
func WithNodeEnclave(enclave string) NodeOption {
	return func(n *Node) {
		n.enclave = enclave
	}
}

// CreateNode creates and graph-registers a node.
func (c *Context) CreateNode(name, namespace string, opts ...NodeOption) (*Node, error) {
	if err := c.checkAlive("CreateNode"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.WrapInvalid(errors.New("node name must not be empty"),
			"Node", "CreateNode", "validate name")
	}
	if namespace == "" {
		namespace = "/"
	}

	n := &Node{ctx: c, name: name, namespace: namespace, enclave: c.enclave}
	for _, opt := range opts {
		opt(n)
	}

	info := graph.NodeInfo{Name: name, Namespace: namespace, Enclave: n.enclave}
	if err := c.transport.RegisterNode(info); err != nil {
		return nil, errors.Wrap(err, "Node", "CreateNode", "register node in graph")
	}
	c.trackNode(n)
	c.recordGraphVersion()
	return n, nil
}

// DestroyNode unregisters the node's remaining endpoints and the node
// itself from the graph, then untracks it.
func (n *Node) Destroy() error {
	if n.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Node", "Destroy", "check node state")
	}

	c := n.ctx
	// Endpoints the caller failed to destroy lose their graph entries
	// here; handle teardown stays the caller's problem.
	for _, p := range n.livePubs {
		if p.registered {
			_ = c.transport.UnregisterPublisherEndpoint([16]byte(p.gid))
			p.registered = false
		}
	}
	for _, s := range n.liveSubs {
		if s.registered {
			_ = c.transport.UnregisterSubscriptionEndpoint([16]byte(s.gid))
			s.registered = false
		}
	}
	for _, svc := range n.liveSvcs {
		if svc.registered {
			_ = c.transport.UnregisterPublisherEndpoint(responseGID(svc.gid))
			_ = c.transport.UnregisterSubscriptionEndpoint([16]byte(svc.gid))
			svc.registered = false
		}
	}
	for _, cl := range n.liveClis {
		if cl.registered {
			_ = c.transport.UnregisterPublisherEndpoint([16]byte(cl.gid))
			_ = c.transport.UnregisterSubscriptionEndpoint(responseGID(cl.gid))
			cl.registered = false
		}
	}
	n.livePubs = nil
	n.liveSubs = nil
	n.liveSvcs = nil
	n.liveClis = nil

	// Best-effort: the context may already be torn down
	_ = c.transport.UnregisterNode(n.name, n.namespace)

	n.destroyed = true
	c.untrackNode(n)
	c.recordGraphVersion()
	return nil
}

// Name returns the node name
func (n *Node) Name() string { return n.name }

// Namespace returns the node namespace
func (n *Node) Namespace() string { return n.namespace }

// Enclave returns the node's security enclave
func (n *Node) Enclave() string { return n.enclave }

// GraphGuardCondition returns the context-wide graph-change guard
func (n *Node) GraphGuardCondition() transport.GuardCondition {
	return n.ctx.transport.GraphGuardCondition()
}

func (n *Node) trackPublisher(p *Publisher) {
	n.livePubs = append(n.livePubs, p)
}

func (n *Node) untrackPublisher(p *Publisher) {
	for i, cand := range n.livePubs {
		if cand == p {
			n.livePubs[i] = n.livePubs[len(n.livePubs)-1]
			n.livePubs = n.livePubs[:len(n.livePubs)-1]
			return
		}
	}
}

func (n *Node) trackSubscription(s *Subscription) {
	n.liveSubs = append(n.liveSubs, s)
}

func (n *Node) untrackSubscription(s *Subscription) {
	for i, cand := range n.liveSubs {
		if cand == s {
			n.liveSubs[i] = n.liveSubs[len(n.liveSubs)-1]
			n.liveSubs = n.liveSubs[:len(n.liveSubs)-1]
			return
		}
	}
}

func (n *Node) trackService(s *Service) {
	n.liveSvcs = append(n.liveSvcs, s)
}

func (n *Node) untrackService(s *Service) {
	for i, cand := range n.liveSvcs {
		if cand == s {
			n.liveSvcs[i] = n.liveSvcs[len(n.liveSvcs)-1]
			n.liveSvcs = n.liveSvcs[:len(n.liveSvcs)-1]
			return
		}
	}
}

func (n *Node) trackClient(cl *Client) {
	n.liveClis = append(n.liveClis, cl)
}

func (n *Node) untrackClient(cl *Client) {
	for i, cand := range n.liveClis {
		if cand == cl {
			n.liveClis[i] = n.liveClis[len(n.liveClis)-1]
			n.liveClis = n.liveClis[:len(n.liveClis)-1]
			return
		}
	}
}
