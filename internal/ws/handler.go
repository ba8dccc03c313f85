package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-server/internal/engine"
	"github.com/DoyleJ11/arena-server/internal/lobby"
	"github.com/DoyleJ11/arena-server/internal/types"
)

type Options struct {
	OriginPatterns []string
	// PingInterval is how often an otherwise idle client is pinged. A client
	// that misses a pong for PingTimeout is closed.
	PingInterval time.Duration
	PingTimeout  time.Duration
	WriteTimeout time.Duration
	OutboxSize   int
	ReadLimit    int64
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 15 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 8 << 10
	}
	return o
}

func Handler(l *lobby.Lobby, opts Options, log *zap.Logger) http.HandlerFunc {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		codec, ok := types.CodecByName(r.URL.Query().Get("codec"))
		if !ok {
			http.Error(w, "unknown codec", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(opts.ReadLimit)

		connID := uuid.NewString()
		log := log.With(zap.String("conn", connID), zap.String("codec", codec.Name()))

		out := make(chan engine.Payload, opts.OutboxSize)
		if !l.Post(lobby.Connect{ConnID: connID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		defer l.Post(lobby.Disconnect{ConnID: connID})
		log.Debug("connection open", zap.String("remote", r.RemoteAddr))

		frame := websocket.MessageText
		if codec.Binary() {
			frame = websocket.MessageBinary
		}

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for p := range out {
				data, err := codec.Encode(p)
				if err != nil {
					log.Error("encode failed", zap.String("type", string(p.Kind())), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, opts.WriteTimeout)
				err = conn.Write(ctx, frame, data)
				cancel()
				if err != nil {
					conn.CloseNow()
					return
				}
			}
			// The lobby closed our outbox: either we were too slow or it is
			// shutting down.
			conn.Close(websocket.StatusGoingAway, "disconnected by server")
		}()

		// Heartbeat. Pongs are only processed while the reader below is
		// blocked in Read.
		go heartbeat(writeCtx, conn, opts, log)

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("connection closed")
				default:
					if !errors.Is(err, context.Canceled) {
						log.Debug("read failed", zap.Error(err))
					}
				}
				return
			}

			ev, err := codec.Decode(data)
			if err != nil {
				log.Warn("bad frame", zap.Error(err))
				if reply, encErr := codec.EncodeError(err.Error()); encErr == nil {
					ctx, cancel := context.WithTimeout(r.Context(), opts.WriteTimeout)
					_ = conn.Write(ctx, frame, reply)
					cancel()
				}
				continue
			}

			if !l.Post(lobby.FromClient{ConnID: connID, Event: ev}) {
				return
			}
		}
	}
}

func heartbeat(ctx context.Context, conn *websocket.Conn, opts Options, log *zap.Logger) {
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					log.Debug("ping failed", zap.Error(err))
				}
				conn.CloseNow()
				return
			}
		}
	}
}
