// Command ddsbridge-ws serves live topic traffic over WebSocket. Each
// client connects to /stream?topic=NAME&type=KIND and receives every
// sample on that topic as a JSON envelope, which makes the bridge's
// traffic visible to dashboards without a native client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/ddsbridge/config"
	"github.com/c360/ddsbridge/msgs"
	"github.com/c360/ddsbridge/qos"
	"github.com/c360/ddsbridge/rmw"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/transport/memtransport"
	"github.com/c360/ddsbridge/transport/natstransport"
	"github.com/c360/ddsbridge/typesupport"
)

const (
	waitTimeout  = 500 * time.Millisecond
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// MessageEnvelope wraps every frame sent to a client
type MessageEnvelope struct {
	Type      string          `json:"type"` // "data" or "error"
	Topic     string          `json:"topic,omitempty"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type server struct {
	rctx     *rmw.Context
	node     *rmw.Node
	upgrader websocket.Upgrader
	logger   *slog.Logger

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}
}

func main() {
	if err := run(); err != nil {
		slog.Error("streamer failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", os.Getenv("DDSBRIDGE_CONFIG"), "path to configuration file")
		listenAddr = flag.String("listen", ":8090", "HTTP listen address")
	)
	flag.Parse()

	logger := slog.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	tc, err := buildTransport(cfg)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	defer func() { _ = tc.Close() }()

	rctx, err := rmw.Init(
		rmw.WithName(cfg.Participant.Name+"_ws"),
		rmw.WithTransport(tc),
		rmw.WithEnclave(cfg.Participant.Enclave),
	)
	if err != nil {
		return fmt.Errorf("initialize middleware: %w", err)
	}
	defer func() {
		_ = rctx.Shutdown()
		_ = rctx.Fini()
	}()

	node, err := rctx.CreateNode("ws_streamer", "/")
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	defer func() { _ = node.Destroy() }()

	srv := &server{
		rctx: rctx,
		node: node,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", srv.handleStream)
	mux.HandleFunc("/topics", srv.handleTopics)
	httpServer := &http.Server{
		Addr:              *listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("websocket streamer listening", "addr", *listenAddr)
		if herr := httpServer.ListenAndServe(); herr != nil && herr != http.ErrServerClosed {
			errCh <- herr
		}
	}()

	select {
	case <-sigCtx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(drainCtx)
	srv.closeClients()
	return nil
}

// handleTopics reports the current topic graph as JSON
func (s *server) handleTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.rctx.GetTopicNamesAndTypes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(topics)
}

func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		http.Error(w, "topic query parameter is required", http.StatusBadRequest)
		return
	}
	ts, newMsg, err := supportFor(r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}
	s.track(conn)
	defer s.untrack(conn)

	sub, err := s.node.CreateSubscription(topic, ts, qos.Default())
	if err != nil {
		s.sendError(conn, fmt.Sprintf("subscribe to %q: %v", topic, err))
		_ = conn.Close()
		return
	}
	defer func() { _ = sub.Destroy() }()

	ws, err := s.rctx.CreateWaitSet()
	if err != nil {
		s.sendError(conn, err.Error())
		_ = conn.Close()
		return
	}
	defer func() { _ = ws.Destroy() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read loop only detects disconnects; clients never send data.
	go func() {
		defer cancel()
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	s.logger.Info("client streaming", "topic", topic, "remote", conn.RemoteAddr())
	s.pump(ctx, conn, sub, ws, topic, newMsg)
}

// pump forwards samples from the subscription to the client until the
// connection or the middleware goes away.
func (s *server) pump(ctx context.Context, conn *websocket.Conn,
	sub *rmw.Subscription, ws *rmw.WaitSet, topic string, newMsg func() any) {

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for ctx.Err() == nil {
		select {
		case <-pingTicker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		default:
		}

		subs := []*rmw.Subscription{sub}
		if err := ws.Wait(ctx, waitTimeout, subs, nil, nil, nil); err != nil {
			return
		}
		if subs[0] == nil {
			continue
		}
		for {
			msg := newMsg()
			info, taken, err := sub.TakeWithInfo(msg)
			if err != nil {
				s.logger.Warn("take failed", "topic", topic, "error", err)
				break
			}
			if !taken {
				break
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			env := MessageEnvelope{
				Type:      "data",
				Topic:     topic,
				Timestamp: info.SourceTimestampMs,
				Payload:   payload,
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
	}
}

func (s *server) sendError(conn *websocket.Conn, msg string) {
	env := MessageEnvelope{Type: "error", Timestamp: time.Now().UnixMilli(), Error: msg}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteJSON(env)
}

func (s *server) track(conn *websocket.Conn) {
	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMu.Unlock()
}

func (s *server) untrack(conn *websocket.Conn) {
	s.clientsMu.Lock()
	delete(s.clients, conn)
	s.clientsMu.Unlock()
}

func (s *server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

func supportFor(name string) (*typesupport.TypeSupport, func() any, error) {
	switch strings.ToLower(name) {
	case "", "string":
		return msgs.StringTypeSupport(), func() any { return &msgs.String{} }, nil
	case "log":
		return msgs.LogTypeSupport(), func() any { return &msgs.Log{} }, nil
	case "parameter_event":
		return msgs.ParameterEventTypeSupport(), func() any { return &msgs.ParameterEvent{} }, nil
	default:
		return nil, nil, fmt.Errorf("unknown message type %q", name)
	}
}

func buildTransport(cfg *config.Config) (transport.Context, error) {
	name := cfg.Participant.Name + "_ws"
	if cfg.Transport.Mode == config.TransportNATS {
		opts := []natstransport.Option{
			natstransport.WithShmTopics(cfg.Transport.ShmTopics...),
		}
		if cfg.NATS.SubjectPrefix != "" {
			opts = append(opts, natstransport.WithSubjectPrefix(cfg.NATS.SubjectPrefix))
		}
		if cfg.NATS.Token != "" {
			opts = append(opts, natstransport.WithToken(cfg.NATS.Token))
		}
		if cfg.NATS.Username != "" {
			opts = append(opts, natstransport.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
		}
		return natstransport.New(cfg.NATS.URL, name, opts...)
	}
	return memtransport.New(name, memtransport.WithShmTopics(cfg.Transport.ShmTopics...))
}
