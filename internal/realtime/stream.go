package realtime

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"
)

const DefaultKeepAlive = 15 * time.Second

// Sink is one connected client.
type Sink interface {
	Send(payload string) error
	KeepAlive() error
}

// Stream forwards every message of sub to sink verbatim until ctx is done,
// the subscription closes, or the sink fails. A nil sub yields keep-alives
// only.
func Stream(ctx context.Context, sub Subscription, sink Sink, keepAlive time.Duration) error {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	var messages <-chan string
	if sub != nil {
		messages = sub.Messages()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := sink.Send(msg); err != nil {
				return err
			}
		case <-ticker.C:
			if err := sink.KeepAlive(); err != nil {
				return err
			}
		}
	}
}

// SSESink writes server-sent events to a buffered response body.
type SSESink struct {
	w *bufio.Writer
}

func NewSSESink(w *bufio.Writer) *SSESink {
	return &SSESink{w: w}
}

func (s *SSESink) Send(payload string) error {
	for _, line := range strings.Split(payload, "\n") {
		if _, err := fmt.Fprintf(s.w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := s.w.WriteString("\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *SSESink) KeepAlive() error {
	if _, err := s.w.WriteString(": keep-alive\n\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

// Comment writes an SSE comment line, used for the initial handshake.
func (s *SSESink) Comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.w.Flush()
}
