package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const (
	// KindLoginOTP carries a login code to a broker's inbox.
	KindLoginOTP = "login_otp"
	// KindRegistrationOTP carries a registration code.
	KindRegistrationOTP = "registration_otp"
	// KindPasswordReset carries a password reset token.
	KindPasswordReset = "password_reset"
	// KindSuccess and KindError are user-facing notices.
	KindSuccess = "success"
	KindError   = "error"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Subject     string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("subject", message.Subject),
		slog.String("body", message.Body))
	return nil
}

// WriterNotifier prints one line per message. The CLI uses it for notices.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier writes notices to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Send(_ context.Context, message Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	prefix := "ok"
	if message.Kind == KindError {
		prefix = "error"
	}
	_, err := fmt.Fprintf(n.w, "%s: %s\n", prefix, message.Body)
	return err
}

// Outbox records messages in memory, newest last.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(_ context.Context, message Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, message)
	return nil
}

// Last returns the newest message for destination and kind.
func (o *Outbox) Last(destination, kind string) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		m := o.messages[i]
		if m.Destination == destination && m.Kind == kind {
			return m, true
		}
	}
	return Message{}, false
}

// Fanout sends to every notifier and returns the first error.
type Fanout []Notifier

func (f Fanout) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range f {
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
