package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/DoyleJ11/arena-server/internal/engine"
)

// Codec turns frames into inbound events and outbound payloads into frames.
// Decode errors wrap engine.ErrProtocol.
type Codec interface {
	Name() string
	Binary() bool
	Decode(data []byte) (engine.Inbound, error)
	Encode(p engine.Payload) ([]byte, error)
	EncodeError(msg string) ([]byte, error)
}

// CodecByName resolves the ?codec= query value. Empty means JSON.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "json":
		return JSON{}, true
	case "msgpack":
		return MsgPack{}, true
	default:
		return nil, false
	}
}

type JSON struct{}

func (JSON) Name() string { return "json" }
func (JSON) Binary() bool { return false }

func (JSON) Decode(data []byte) (engine.Inbound, error) {
	var env struct {
		Type    ClientType      `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrProtocol, err)
	}
	return toInbound(env.Type, func(v any) error {
		if len(env.Payload) == 0 || string(env.Payload) == "null" {
			return nil
		}
		return json.Unmarshal(env.Payload, v)
	})
}

func (JSON) Encode(p engine.Payload) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: p.Kind(), Payload: p})
}

func (JSON) EncodeError(msg string) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: TypeError, Payload: ErrorPayload{Message: msg}})
}

type MsgPack struct{}

func (MsgPack) Name() string { return "msgpack" }
func (MsgPack) Binary() bool { return true }

func (MsgPack) Decode(data []byte) (engine.Inbound, error) {
	var env struct {
		Type    ClientType         `json:"type"`
		Payload msgpack.RawMessage `json:"payload"`
	}
	if err := unmarshalMsgPack(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrProtocol, err)
	}
	return toInbound(env.Type, func(v any) error {
		if len(env.Payload) == 0 {
			return nil
		}
		return unmarshalMsgPack(env.Payload, v)
	})
}

func (MsgPack) Encode(p engine.Payload) ([]byte, error) {
	return marshalMsgPack(ServerMessage{Type: p.Kind(), Payload: p})
}

func (MsgPack) EncodeError(msg string) ([]byte, error) {
	return marshalMsgPack(ServerMessage{Type: TypeError, Payload: ErrorPayload{Message: msg}})
}

// Both codecs share the json tags so field names match on the wire.
func marshalMsgPack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalMsgPack(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func toInbound(t ClientType, decode func(any) error) (engine.Inbound, error) {
	var (
		ev  engine.Inbound
		err error
	)
	switch t {
	case TypeJoinGame:
		var m engine.JoinGame
		err = decode(&m)
		ev = m
	case TypeUpdatePosition:
		var m engine.UpdatePosition
		err = decode(&m)
		ev = m
	case TypePlayerShoot:
		var m engine.PlayerShoot
		err = decode(&m)
		ev = m
	case TypePlayerHit:
		var m playerHit
		if err = decode(&m); err == nil {
			if math.IsNaN(m.Damage) || math.IsInf(m.Damage, 0) || math.Abs(m.Damage) > math.MaxInt32 {
				return nil, fmt.Errorf("%w: damage out of range", engine.ErrProtocol)
			}
			ev = engine.PlayerHit{TargetID: m.TargetID, Damage: int(math.Round(m.Damage))}
		}
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", engine.ErrProtocol, t)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", engine.ErrProtocol, t, err)
	}
	return ev, nil
}
