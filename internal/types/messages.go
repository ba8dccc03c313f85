package types

import (
	"github.com/DoyleJ11/arena-server/internal/engine"
)

type ClientType string

const (
	TypeJoinGame       ClientType = "join_game"
	TypeUpdatePosition ClientType = "update_position"
	TypePlayerShoot    ClientType = "player_shoot"
	TypePlayerHit      ClientType = "player_hit"
)

// ServerMessage is the envelope for every outbound frame.
type ServerMessage struct {
	Type    engine.EventKind `json:"type"`
	Payload any              `json:"payload"`
}

// ErrorPayload answers a frame the gateway could not decode.
type ErrorPayload struct {
	Message string `json:"message"`
}

const TypeError engine.EventKind = "error"

// playerHit is the wire shape of a hit; clients send damage as a float.
type playerHit struct {
	TargetID string  `json:"targetId"`
	Damage   float64 `json:"damage"`
}
