package handler

import (
	"bufio"
	"context"
	"net/http"
	"time"

	"job-match/internal/metrics"
	"job-match/internal/realtime"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type StreamConfig struct {
	Channels  []string
	KeepAlive time.Duration
}

// StreamHandler mirrors broker events to SSE and websocket clients. Each
// connection owns one subscription; without a broker clients only receive
// keep-alives.
type StreamHandler struct {
	base       context.Context
	subscriber realtime.Subscriber
	cfg        StreamConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewStreamHandler(base context.Context, sub realtime.Subscriber, cfg StreamConfig, logger *zap.Logger, m *metrics.Metrics) *StreamHandler {
	if base == nil {
		base = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{realtime.ChannelJobs, realtime.ChannelMatches, realtime.ChannelNotifications}
	}
	return &StreamHandler{base: base, subscriber: sub, cfg: cfg, logger: logger.Named("stream"), metrics: m}
}

func (h *StreamHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/stream", h.SSE)
	r.Get("/ws", h.WebSocket)
}

func (h *StreamHandler) subscribe(ctx context.Context) realtime.Subscription {
	if h.subscriber == nil {
		return nil
	}
	sub, err := h.subscriber.Subscribe(ctx, h.cfg.Channels...)
	if err != nil {
		h.logger.Warn("subscribe failed, keep-alive only", zap.Error(err))
		return nil
	}
	return sub
}

func (h *StreamHandler) SSE(c fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(h.base)
		defer cancel()

		sub := h.subscribe(ctx)
		if sub != nil {
			defer sub.Close()
		}

		h.metrics.StreamClient("sse", 1)
		defer h.metrics.StreamClient("sse", -1)

		sink := realtime.NewSSESink(w)
		if err := sink.Comment("connected"); err != nil {
			return
		}
		if err := realtime.Stream(ctx, sub, sink, h.cfg.KeepAlive); err != nil {
			h.logger.Debug("sse client gone", zap.Error(err))
		}
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *StreamHandler) WebSocket(c fiber.Ctx) error {
	fiberHandler := adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		sink := realtime.NewWSSink(conn)
		ctx, cancel := context.WithCancel(h.base)
		sub := h.subscribe(ctx)

		go sink.ReadPump(cancel)
		go func() {
			defer cancel()
			defer sink.Close()
			if sub != nil {
				defer sub.Close()
			}

			h.metrics.StreamClient("ws", 1)
			defer h.metrics.StreamClient("ws", -1)

			if err := realtime.Stream(ctx, sub, sink, h.cfg.KeepAlive); err != nil {
				h.logger.Debug("websocket client gone", zap.Error(err))
			}
		}()
	})

	return fiberHandler(c)
}
