package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/game-finalizer/internal/domain"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	// ErrNotConnected is returned when a WebSocket frame cannot be written.
	ErrNotConnected = staticErr("notify: websocket not connected")
	// ErrNoSender is returned by a Notifier built without a transport.
	ErrNoSender = staticErr("notify: no sender configured")
)

// WinnerKey is the catalog key of the winner message.
const WinnerKey = "winner.sms"

// SMS is the payload every transport delivers.
type SMS struct {
	ID      string `json:"id"`
	To      int64  `json:"to"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// Sender delivers one SMS.
type Sender interface {
	Send(ctx context.Context, msg SMS) error
}

// Renderer renders catalog templates; *msgcat.Catalog satisfies it.
type Renderer interface {
	Render(key string, data any) (string, error)
}

// Notifier turns a winner into an SMS and hands it to a Sender.
type Notifier struct {
	sender   Sender
	renderer Renderer
	logger   *zap.Logger
	newID    func() string
}

type Option func(*Notifier)

func WithRenderer(r Renderer) Option {
	return func(n *Notifier) { n.renderer = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithIDSource replaces the uuid message id generator.
func WithIDSource(f func() string) Option {
	return func(n *Notifier) {
		if f != nil {
			n.newID = f
		}
	}
}

func NewNotifier(sender Sender, opts ...Option) *Notifier {
	n := &Notifier{
		sender: sender,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyWinner sends one SMS to winner. Sends are not retried.
func (n *Notifier) NotifyWinner(ctx context.Context, winner domain.Participant, description string) error {
	if n.sender == nil {
		return ErrNoSender
	}
	msg := n.Compose(winner, description)
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Warn("notify_send_failed",
			zap.String("message_id", msg.ID),
			zap.Int64("to", msg.To),
			zap.Error(err),
		)
		return fmt.Errorf("notify winner %d: %w", winner.ID, err)
	}
	n.logger.Debug("notify_sent", zap.String("message_id", msg.ID), zap.Int64("to", msg.To))
	return nil
}

// Compose builds the SMS for winner. When the catalog cannot render the
// message a built-in text is used.
func (n *Notifier) Compose(winner domain.Participant, description string) SMS {
	name := DisplayName(winner)
	text := fmt.Sprintf("Congratulations %s! You won %q.", name, description)
	if n.renderer != nil {
		rendered, err := n.renderer.Render(WinnerKey, map[string]any{"Name": name, "Game": description})
		if err == nil {
			text = rendered
		} else {
			n.logger.Warn("notify_render_failed", zap.String("key", WinnerKey), zap.Error(err))
		}
	}
	return SMS{ID: n.newID(), To: winner.ID, Name: winner.Name, Message: text}
}

// DisplayName is the participant's name, or "participant <id>" when unnamed.
func DisplayName(p domain.Participant) string {
	if p.Name != "" {
		return p.Name
	}
	return "participant " + strconv.FormatInt(p.ID, 10)
}
