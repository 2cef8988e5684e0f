package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	ModeHTTP = "http"
	ModeWS   = "ws"
	ModeAuto = "auto"
	ModeLog  = "log"
)

// Endpoints configures the network senders.
type Endpoints struct {
	BaseURL string
	WSURL   string
	APIKey  string
	Timeout time.Duration
}

// NewSender picks a transport by mode. Auto writes over WebSocket and falls
// back to HTTP once when that fails.
func NewSender(mode string, ep Endpoints, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var headers HeaderProvider
	if ep.APIKey != "" {
		headers = APIKeyHeader(ep.APIKey)
	}
	newHTTP := func() (*HTTPSender, error) {
		if ep.BaseURL == "" {
			return nil, errors.New("notify: http sender needs a base url")
		}
		return NewHTTPSender(ep.BaseURL, WithTimeout(ep.Timeout), WithHeaderProvider(headers)), nil
	}
	newWS := func() (*WSSender, error) {
		if ep.WSURL == "" {
			return nil, errors.New("notify: ws sender needs a url")
		}
		return NewWSSender(ep.WSURL, WithWSTimeout(ep.Timeout), WithWSHeaders(headers)), nil
	}

	switch mode {
	case ModeHTTP:
		return newHTTP()
	case ModeWS:
		return newWS()
	case ModeAuto:
		h, err := newHTTP()
		if err != nil {
			return nil, err
		}
		w, err := newWS()
		if err != nil {
			return nil, err
		}
		return &AutoSender{ws: w, http: h, logger: logger}, nil
	case ModeLog, "":
		return &LogSender{logger: logger}, nil
	default:
		return nil, fmt.Errorf("notify: unknown mode %q", mode)
	}
}

// AutoSender prefers the WebSocket transport.
type AutoSender struct {
	ws     Sender
	http   Sender
	logger *zap.Logger
}

func NewAutoSender(ws, http Sender, logger *zap.Logger) *AutoSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoSender{ws: ws, http: http, logger: logger}
}

func (a *AutoSender) Send(ctx context.Context, msg SMS) error {
	if a.ws != nil {
		err := a.ws.Send(ctx, msg)
		if err == nil {
			return nil
		}
		a.logger.Warn("notify_fallback", zap.String("message_id", msg.ID), zap.Error(err))
	}
	if a.http == nil {
		return ErrNoSender
	}
	return a.http.Send(ctx, msg)
}

// Close closes the WebSocket side if it has one.
func (a *AutoSender) Close() error {
	if c, ok := a.ws.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// LogSender only logs. Used for dry runs.
type LogSender struct{ logger *zap.Logger }

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, msg SMS) error {
	l.logger.Info("notify_dryrun",
		zap.String("message_id", msg.ID),
		zap.Int64("to", msg.To),
		zap.String("name", msg.Name),
		zap.String("message", msg.Message),
	)
	return nil
}
