// Command ddsbridge-echo subscribes to a topic and prints every sample
// it receives as one JSON line. It understands the built-in message
// types and is mainly a debugging aid for watching live traffic.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360/ddsbridge/config"
	"github.com/c360/ddsbridge/msgs"
	"github.com/c360/ddsbridge/qos"
	"github.com/c360/ddsbridge/rmw"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/transport/memtransport"
	"github.com/c360/ddsbridge/transport/natstransport"
	"github.com/c360/ddsbridge/typesupport"
)

const waitTimeout = 500 * time.Millisecond

func main() {
	if err := run(); err != nil {
		slog.Error("echo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", os.Getenv("DDSBRIDGE_CONFIG"), "path to configuration file")
		topic      = flag.String("topic", "", "topic to echo (required)")
		typeName   = flag.String("type", "string", "message type: string, log or parameter_event")
		filterExpr = flag.String("filter", "", "content filter expression, e.g. 'level >= %0'")
		filterArgs = flag.String("filter-params", "", "comma separated filter parameters")
		sensor     = flag.Bool("sensor", false, "use the sensor-data profile instead of the default")
	)
	flag.Parse()

	if *topic == "" {
		flag.Usage()
		return fmt.Errorf("a -topic is required")
	}
	ts, newMsg, err := supportFor(*typeName)
	if err != nil {
		return err
	}

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
		rmw.WithName(cfg.Participant.Name+"_echo"),
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

	node, err := rctx.CreateNode("echo", "/")
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	defer func() { _ = node.Destroy() }()

	profile := qos.Default()
	if *sensor {
		profile = qos.SensorData()
	}
	sub, err := node.CreateSubscription(*topic, ts, profile)
	if err != nil {
		return fmt.Errorf("subscribe to %q: %w", *topic, err)
	}
	defer func() { _ = sub.Destroy() }()

	if *filterExpr != "" {
		var params []string
		if *filterArgs != "" {
			params = strings.Split(*filterArgs, ",")
		}
		if err := sub.SetContentFilter(*filterExpr, params); err != nil {
			return fmt.Errorf("install content filter: %w", err)
		}
	}

	ws, err := rctx.CreateWaitSet()
	if err != nil {
		return fmt.Errorf("create wait set: %w", err)
	}
	defer func() { _ = ws.Destroy() }()

	sigCtx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	for sigCtx.Err() == nil {
		subs := []*rmw.Subscription{sub}
		if err := ws.Wait(sigCtx, waitTimeout, subs, nil, nil, nil); err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		if subs[0] == nil {
			continue
		}
		for {
			msg := newMsg()
			info, taken, err := sub.TakeWithInfo(msg)
			if err != nil {
				slog.Warn("take failed", "topic", *topic, "error", err)
				break
			}
			if !taken {
				break
			}
			line := sampleLine{Topic: *topic, SourceTimestampMs: info.SourceTimestampMs, Data: msg}
			if err := enc.Encode(line); err != nil {
				return fmt.Errorf("write sample: %w", err)
			}
		}
	}
	return nil
}

type sampleLine struct {
	Topic             string `json:"topic"`
	SourceTimestampMs int64  `json:"source_timestamp_ms"`
	Data              any    `json:"data"`
}

func supportFor(name string) (*typesupport.TypeSupport, func() any, error) {
	switch strings.ToLower(name) {
	case "string":
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
	name := cfg.Participant.Name + "_echo"
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
