package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-server/internal/engine"
	"github.com/DoyleJ11/arena-server/internal/hub"
)

type Msg interface{ isLobbyMsg() }

// Connect registers a connection's outbox. The lobby closes the outbox when
// the connection is dropped or the lobby shuts down.
type Connect struct {
	ConnID string
	Outbox chan<- engine.Payload
}

type Disconnect struct{ ConnID string }

type FromClient struct {
	ConnID string
	Event  engine.Inbound
}

type CreateRoom struct {
	ID    string
	Map   engine.MapName
	Reply chan RoomCreated
}

// RoomCreated answers CreateRoom. Err is set when the room could not be
// opened; Room is then empty.
type RoomCreated struct {
	Room    engine.RoomSnapshot
	Created bool
	Err     error
}

type ListRooms struct {
	Reply chan []RoomInfo
}

type RoomInfo struct {
	ID            string         `json:"id"`
	MapName       engine.MapName `json:"mapName"`
	Players       int            `json:"players"`
	Capacity      int            `json:"capacity"`
	TimeRemaining int            `json:"timeRemaining"`
	Active        bool           `json:"active"`
}

type GetState struct {
	Reply chan View
}

type View struct {
	Rooms   int
	Players int
	Clients int
	Timers  int
}

// Tick advances every match clock by one second. The lobby sends itself one
// per TickEvery; tests send it by hand.
type Tick struct{}

type Shutdown struct{}

type taskDue struct {
	task engine.Task
	seq  uint64
}

func (Connect) isLobbyMsg()    {}
func (Disconnect) isLobbyMsg() {}
func (FromClient) isLobbyMsg() {}
func (CreateRoom) isLobbyMsg() {}
func (ListRooms) isLobbyMsg()  {}
func (GetState) isLobbyMsg()   {}
func (Tick) isLobbyMsg()       {}
func (Shutdown) isLobbyMsg()   {}
func (taskDue) isLobbyMsg()    {}

// MatchSink receives a summary whenever a match ends. Implementations must
// not block: they run on the lobby loop.
type MatchSink interface {
	MatchEnded(engine.MatchSummary)
}

type Options struct {
	// TickEvery is the match clock period. Zero disables the internal ticker.
	TickEvery time.Duration
	InboxSize int
	Sinks     []MatchSink
	Log       *zap.Logger
}

type pending struct {
	timer *time.Timer
	seq   uint64
}

type Lobby struct {
	inbox  chan Msg
	reg    *engine.Registry
	hub    *hub.Hub
	timers map[engine.TaskKey]pending
	seq    uint64
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, reg *engine.Registry, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		inbox:  make(chan Msg, opts.InboxSize),
		reg:    reg,
		hub:    hub.New(),
		timers: make(map[engine.TaskKey]pending),
		opts:   opts,
		log:    log.Named("lobby"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go l.loop()
	return l
}

// Inbox exposes the raw inbox for tests and in-process callers that already
// watch the lobby's lifetime. Everyone else should use Post.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Post delivers m unless the lobby has stopped. It reports whether m was
// accepted.
func (l *Lobby) Post(m Msg) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// Done is closed once the loop has exited and every outbox is closed.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) loop() {
	defer close(l.done)

	var tick <-chan time.Time
	if l.opts.TickEvery > 0 {
		ticker := time.NewTicker(l.opts.TickEvery)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case <-tick:
			l.apply(l.reg.Tick())

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Connect:
				l.hub.Register(msg.ConnID, msg.Outbox)
				l.log.Debug("connected", zap.String("conn", msg.ConnID))

			case Disconnect:
				l.drop(msg.ConnID)

			case FromClient:
				if !l.hub.Connected(msg.ConnID) {
					l.log.Debug("event from unknown connection", zap.String("conn", msg.ConnID))
					break
				}
				l.handle(msg.ConnID, msg.Event)

			case CreateRoom:
				room, created, err := l.reg.OpenRoom(msg.ID, msg.Map)
				if err != nil {
					l.log.Warn("room not created", zap.String("room", msg.ID), zap.Error(err))
					msg.Reply <- RoomCreated{Err: err}
					break
				}
				snap, _ := l.reg.Snapshot(room.ID)
				msg.Reply <- RoomCreated{Room: snap, Created: created}

			case ListRooms:
				msg.Reply <- l.listRooms()

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Rooms:   len(l.reg.Rooms()),
					Players: len(l.reg.Players()),
					Clients: l.hub.Len(),
					Timers:  len(l.timers),
				}

			case Tick:
				l.apply(l.reg.Tick())

			case taskDue:
				p, ok := l.timers[msg.task.Key]
				if !ok || p.seq != msg.seq {
					break // cancelled or superseded
				}
				delete(l.timers, msg.task.Key)
				l.apply(l.reg.Fire(msg.task))

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handle(connID string, ev engine.Inbound) {
	var (
		fx  engine.Effects
		err error
	)
	switch e := ev.(type) {
	case engine.JoinGame:
		var res engine.JoinResult
		res, fx, err = l.reg.Join(connID, e.PlayerName, e.InviteCode)
		if err == nil {
			l.log.Info("player joined",
				zap.String("conn", connID),
				zap.String("room", res.RoomID),
				zap.String("team", string(res.Team)))
		}
	case engine.UpdatePosition:
		fx, err = l.reg.ApplyMove(connID, e.Position, e.Rotation)
	case engine.PlayerShoot:
		fx, err = l.reg.ApplyShot(connID, e.WeaponType, e.Position, e.Direction)
	case engine.PlayerHit:
		var outcome engine.Outcome
		outcome, fx, err = l.reg.ApplyHit(connID, e.TargetID, e.Damage)
		if outcome == engine.OutcomeKilled {
			l.log.Debug("kill", zap.String("killer", connID), zap.String("target", e.TargetID))
		}
	default:
		l.log.Warn("unhandled inbound event", zap.String("conn", connID), zap.Any("event", ev))
		return
	}

	// Rejections still carry events for the sender.
	l.apply(fx)
	if err != nil {
		l.logRejected(connID, err)
	}
}

func (l *Lobby) logRejected(connID string, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownRoomReference):
		l.log.Debug("event dropped", zap.String("conn", connID), zap.Error(err))
	case errors.Is(err, engine.ErrRoomFull):
		l.log.Info("join rejected", zap.String("conn", connID), zap.Error(err))
	default:
		l.log.Warn("event rejected", zap.String("conn", connID), zap.Error(err))
	}
}

// drop forgets a connection and removes its player.
func (l *Lobby) drop(connID string) {
	l.hub.Unregister(connID)
	if _, ok := l.reg.Player(connID); ok {
		l.log.Info("player left", zap.String("conn", connID))
	}
	l.apply(l.reg.Leave(connID))
}

func (l *Lobby) apply(fx engine.Effects) {
	for _, key := range fx.Cancels {
		l.stop(key)
	}
	for _, t := range fx.Tasks {
		l.schedule(t)
	}
	for _, s := range fx.Finished {
		l.log.Info("match ended",
			zap.String("room", s.RoomID),
			zap.String("map", string(s.MapName)),
			zap.Int("players", len(s.Players)))
		for _, sink := range l.opts.Sinks {
			sink.MatchEnded(s)
		}
	}

	var dropped []string
	for _, ev := range fx.Events {
		dropped = append(dropped, l.hub.Deliver(ev)...)
	}
	for _, id := range dropped {
		l.log.Warn("dropping slow client", zap.String("conn", id))
		l.drop(id)
	}
}

func (l *Lobby) schedule(t engine.Task) {
	l.stop(t.Key)
	l.seq++
	due := taskDue{task: t, seq: l.seq}
	timer := time.AfterFunc(t.Delay, func() {
		l.Post(due)
	})
	l.timers[t.Key] = pending{timer: timer, seq: due.seq}
}

func (l *Lobby) stop(key engine.TaskKey) {
	if p, ok := l.timers[key]; ok {
		p.timer.Stop()
		delete(l.timers, key)
	}
}

func (l *Lobby) listRooms() []RoomInfo {
	rooms := l.reg.Rooms()
	out := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, RoomInfo{
			ID:            room.ID,
			MapName:       room.MapName,
			Players:       len(room.Members),
			Capacity:      l.reg.Rules().Capacity,
			TimeRemaining: room.TimeRemaining,
			Active:        room.Active,
		})
	}
	return out
}

func (l *Lobby) shutdown() {
	for key, p := range l.timers {
		p.timer.Stop()
		delete(l.timers, key)
	}
	l.hub.Close()
	l.cancel()
}
