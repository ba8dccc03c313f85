package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-server/internal/config"
	"github.com/DoyleJ11/arena-server/internal/engine"
)

// Publisher announces finished matches on a NATS subject. Publishing is
// buffered by the client library, so MatchEnded does not block on the
// network.
type Publisher struct {
	nc      *nats.Conn
	subject string
	log     *zap.Logger
}

func Connect(cfg config.NATSConfig, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("notify")

	nc, err := nats.Connect(cfg.URL,
		nats.Name("arena-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	return &Publisher{nc: nc, subject: cfg.Subject, log: log}, nil
}

func (p *Publisher) MatchEnded(s engine.MatchSummary) {
	data, err := encode(s)
	if err != nil {
		p.log.Error("encode match", zap.String("room", s.RoomID), zap.Error(err))
		return
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		p.log.Warn("publish match", zap.String("room", s.RoomID), zap.Error(err))
	}
}

// Close flushes pending publishes and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

func encode(s engine.MatchSummary) ([]byte, error) {
	if s.Players == nil {
		s.Players = []engine.PlayerResult{}
	}
	return json.Marshal(s)
}
