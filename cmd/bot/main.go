// Command bot drives simulated players against a running server, for smoke
// and load testing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/arena-server/internal/engine"
)

const writeWait = 5 * time.Second

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outgoing struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type bot struct {
	name string
	conn *websocket.Conn
	rng  *rand.Rand
	log  *zap.Logger

	mu      sync.Mutex
	team    engine.Team
	enemies map[string]bool
	pos     engine.Vec3
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	count := flag.Int("bots", 4, "number of bots")
	room := flag.String("room", "", "invite code to join; empty for matchmaking")
	duration := flag.Duration("duration", time.Minute, "how long to play")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	g, ctx := errgroup.WithContext(ctx)
	for i := range *count {
		name := fmt.Sprintf("bot-%02d", i)
		g.Go(func() error {
			return play(ctx, u.String(), name, *room, log.Named(name))
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal("bot failed", zap.Error(err))
	}
}

func play(ctx context.Context, wsURL, name, room string, log *zap.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("%s: dial: %w", name, err)
	}
	defer conn.Close()

	b := &bot{
		name:    name,
		conn:    conn,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     log,
		enemies: map[string]bool{},
	}
	if err := b.send("join_game", engine.JoinGame{PlayerName: name, InviteCode: room}); err != nil {
		return err
	}

	readErr := make(chan error, 1)
	go func() { readErr <- b.readLoop() }()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
				time.Now().Add(writeWait))
			return nil
		case err := <-readErr:
			return fmt.Errorf("%s: read: %w", name, err)
		case <-ticker.C:
			if err := b.act(); err != nil {
				return err
			}
		}
	}
}

func (b *bot) readLoop() error {
	for {
		var env envelope
		if err := b.conn.ReadJSON(&env); err != nil {
			return err
		}
		b.observe(env)
	}
}

func (b *bot) observe(env envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch engine.EventKind(env.Type) {
	case engine.EvtGameJoined:
		var p engine.GameJoined
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		b.team = p.Team
		clear(b.enemies)
		for _, pl := range p.Players {
			if pl.Team != p.Team {
				b.enemies[pl.ID] = true
			}
		}
		b.log.Info("joined", zap.String("room", p.GameID), zap.String("team", string(p.Team)))
	case engine.EvtPlayerJoined:
		var p engine.PlayerSummary
		if json.Unmarshal(env.Payload, &p) == nil && p.Team != b.team {
			b.enemies[p.ID] = true
		}
	case engine.EvtPlayerLeft:
		var p engine.PlayerLeft
		if json.Unmarshal(env.Payload, &p) == nil {
			delete(b.enemies, p.ID)
		}
	case engine.EvtPlayerKilled:
		var p engine.PlayerKilled
		if json.Unmarshal(env.Payload, &p) == nil {
			b.log.Debug("kill", zap.String("killer", p.KillerName), zap.String("target", p.TargetName))
		}
	case engine.EvtPlayerRespawn:
		var p engine.PlayerRespawn
		if json.Unmarshal(env.Payload, &p) == nil {
			b.pos = p.Position
		}
	case engine.EvtGameEnded:
		b.log.Info("match over")
	case "error":
		b.log.Warn("server rejected frame", zap.ByteString("payload", env.Payload))
	}
}

// act moves a little and now and then shoots a random enemy.
func (b *bot) act() error {
	b.mu.Lock()
	b.pos[0] += b.rng.Float64() - 0.5
	b.pos[2] += b.rng.Float64() - 0.5
	pos := b.pos
	var target string
	if b.rng.Intn(10) == 0 {
		for id := range b.enemies {
			target = id
			break
		}
	}
	b.mu.Unlock()

	if err := b.send("update_position", engine.UpdatePosition{Position: pos}); err != nil {
		return err
	}
	if target == "" {
		return nil
	}
	if err := b.send("player_shoot", engine.PlayerShoot{WeaponType: "AK-47", Position: pos, Direction: engine.Vec3{0, 0, 1}}); err != nil {
		return err
	}
	return b.send("player_hit", engine.PlayerHit{TargetID: target, Damage: 25})
}

func (b *bot) send(typ string, payload any) error {
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := b.conn.WriteJSON(outgoing{Type: typ, Payload: payload}); err != nil {
		return fmt.Errorf("%s: write %s: %w", b.name, typ, err)
	}
	return nil
}
