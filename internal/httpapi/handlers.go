package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-server/internal/engine"
	"github.com/DoyleJ11/arena-server/internal/lobby"
	"github.com/DoyleJ11/arena-server/internal/persist"
)

var errLobbyClosed = errors.New("lobby closed")

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// ask posts a request to the lobby and waits for its reply.
func ask[T any](ctx context.Context, l *lobby.Lobby, msg lobby.Msg, reply <-chan T) (T, error) {
	var zero T
	if !l.Post(msg) {
		return zero, errLobbyClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.Done():
		return zero, errLobbyClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

type createRoomRequest struct {
	Map engine.MapName `json:"map"`
}

type roomResponse struct {
	Code          string         `json:"code"`
	Map           engine.MapName `json:"map"`
	Players       int            `json:"players"`
	TimeRemaining int            `json:"timeRemaining"`
}

func CreateRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if req.Map != "" && d.Catalog != nil && !d.Catalog.HasMap(req.Map) {
			http.Error(w, "unknown map", http.StatusBadRequest)
			return
		}

		for attempt := 0; attempt < 5; attempt++ {
			code, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan lobby.RoomCreated, 1)
			res, err := ask(r.Context(), d.Lobby, lobby.CreateRoom{ID: code, Map: req.Map, Reply: reply}, reply)
			if err != nil {
				http.Error(w, "server shutting down", http.StatusServiceUnavailable)
				return
			}
			if errors.Is(res.Err, engine.ErrTooManyRooms) {
				http.Error(w, "too many open rooms", http.StatusServiceUnavailable)
				return
			}
			if res.Err != nil {
				http.Error(w, "failed to create room", http.StatusInternalServerError)
				return
			}
			if !res.Created {
				d.Log.Debug("collision on code, regenerating", zap.String("code", code))
				continue
			}
			writeJSON(w, http.StatusCreated, roomResponse{
				Code:          res.Room.ID,
				Map:           res.Room.MapName,
				TimeRemaining: res.Room.TimeRemaining,
			})
			return
		}
		http.Error(w, "failed to allocate room code", http.StatusInternalServerError)
	}
}

// ListRooms returns the rooms a new player could join right now.
func ListRooms(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []lobby.RoomInfo, 1)
		rooms, err := ask(r.Context(), d.Lobby, lobby.ListRooms{Reply: reply}, reply)
		if err != nil {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}

		out := make([]roomResponse, 0, len(rooms))
		for _, room := range rooms {
			if !room.Active || room.Players >= room.Capacity {
				continue
			}
			out = append(out, roomResponse{
				Code:          room.ID,
				Map:           room.MapName,
				Players:       room.Players,
				TimeRemaining: room.TimeRemaining,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func Catalog(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Maps    any `json:"maps"`
			Weapons any `json:"weapons"`
		}{Maps: d.Catalog.Maps(), Weapons: d.Catalog.Weapons()})
	}
}

// MatchHistory is the read side of the match archive.
type MatchHistory interface {
	Recent(ctx context.Context, limit int) ([]persist.MatchRecord, error)
}

func RecentMatches(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 100 {
				http.Error(w, "limit must be 1..100", http.StatusBadRequest)
				return
			}
			limit = n
		}
		matches, err := d.Matches.Recent(r.Context(), limit)
		if err != nil {
			d.Log.Error("recent matches", zap.Error(err))
			http.Error(w, "failed to load matches", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
