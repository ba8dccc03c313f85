package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin_TeamBalanceAfterEveryJoin(t *testing.T) {
	r := newTestRegistry(t)

	for i := range 10 {
		res := mustJoin(t, r, fmt.Sprintf("p%d", i), "x", "arena")
		want := TeamRed
		if i%2 == 1 {
			want = TeamBlue
		}
		assert.Equal(t, want, res.Team, "join %d", i)

		room, _ := r.Room("arena")
		diff := len(room.Teams[TeamRed]) - len(room.Teams[TeamBlue])
		if diff < -1 || diff > 1 {
			t.Fatalf("after join %d teams unbalanced by %d", i, diff)
		}
		checkRoomInvariants(t, r)
	}
}

func TestJoin_FillsSmallerTeamAfterLeave(t *testing.T) {
	r := newTestRegistry(t)
	mustJoin(t, r, "r1", "a", "arena")
	mustJoin(t, r, "b1", "b", "arena")
	mustJoin(t, r, "r2", "c", "arena")
	r.Leave("r1")
	r.Leave("r2")

	res := mustJoin(t, r, "n", "d", "arena")
	assert.Equal(t, TeamRed, res.Team)
}

func TestJoin_Events(t *testing.T) {
	r := newTestRegistry(t)
	mustJoin(t, r, "p1", "Alice", "arena")

	_, fx, err := r.Join("p2", "Bob", "arena")
	require.NoError(t, err)

	joined := eventsOf(fx, EvtGameJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, []string{"p2"}, joined[0].To)
	gj := joined[0].Payload.(GameJoined)
	assert.Equal(t, "arena", gj.GameID)
	assert.Equal(t, TeamBlue, gj.Team)
	assert.Len(t, gj.Players, 2)
	assert.Equal(t, []string{"p1", "p2"}, gj.Game.Players)

	announced := eventsOf(fx, EvtPlayerJoined)
	require.Len(t, announced, 1)
	assert.Equal(t, []string{"p1"}, announced[0].To)
	pj := announced[0].Payload.(PlayerJoined)
	assert.Equal(t, "Bob", pj.Name)
	assert.Equal(t, TeamBlue, pj.Team)
	assert.Equal(t, MaxHealth, pj.Health)
	assert.Equal(t, "AK-47", pj.Weapon)
}

func TestJoin_FirstJoinerGetsNoPlayerJoined(t *testing.T) {
	r := newTestRegistry(t)

	_, fx, err := r.Join("p1", "Alice", "")
	require.NoError(t, err)

	assert.True(t, containsEvent(fx.Events, EvtGameJoined))
	assert.False(t, containsEvent(fx.Events, EvtPlayerJoined))
}

func TestJoin_AutoPicksOldestJoinableRoom(t *testing.T) {
	r := newTestRegistry(t, func(rules *Rules) { rules.Capacity = 2 })
	r.CreateRoom("first", "")
	r.CreateRoom("second", "")

	assert.Equal(t, "first", mustJoin(t, r, "a", "", "").RoomID)
	assert.Equal(t, "first", mustJoin(t, r, "b", "", "").RoomID)
	assert.Equal(t, "second", mustJoin(t, r, "c", "", "").RoomID)
}

func TestJoin_AutoCreatesRoomWhenNoneOpen(t *testing.T) {
	r := newTestRegistry(t)

	res := mustJoin(t, r, "a", "", "")

	assert.Equal(t, "game_1700000000000", res.RoomID)
	room, ok := r.Room(res.RoomID)
	require.True(t, ok)
	assert.Equal(t, MapWinter, room.MapName)
}

func TestJoin_FullRoomRejected(t *testing.T) {
	r := newTestRegistry(t)
	for i := range 10 {
		mustJoin(t, r, fmt.Sprintf("p%d", i), "x", "arena")
	}

	res, fx, err := r.Join("late", "Late", "arena")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRoomFull))
	assert.Empty(t, res.RoomID)
	require.Len(t, fx.Events, 1)
	assert.Equal(t, []string{"late"}, fx.Events[0].To)
	assert.Equal(t, JoinRejected{GameID: "arena", Reason: "room_full"}, fx.Events[0].Payload)

	room, _ := r.Room("arena")
	assert.Len(t, room.Members, 10)
	_, ok := r.Player("late")
	assert.False(t, ok)
}

func TestJoin_FullRoomKeepsJoinerInOldRoom(t *testing.T) {
	r := newTestRegistry(t, func(rules *Rules) { rules.Capacity = 1 })
	mustJoin(t, r, "a", "", "full")
	mustJoin(t, r, "b", "", "home")

	_, _, err := r.Join("b", "", "full")
	require.ErrorIs(t, err, ErrRoomFull)

	p, _ := r.Player("b")
	assert.Equal(t, "home", p.RoomID)
}

func TestJoin_SwitchingRoomsLeavesOldOne(t *testing.T) {
	r := newTestRegistry(t)
	mustJoin(t, r, "a", "", "one")
	mustJoin(t, r, "b", "", "one")

	_, fx, err := r.Join("a", "", "two")
	require.NoError(t, err)

	left := eventsOf(fx, EvtPlayerLeft)
	require.Len(t, left, 1)
	assert.Equal(t, []string{"b"}, left[0].To)

	one, _ := r.Room("one")
	assert.Equal(t, []string{"b"}, one.Members)
	p, _ := r.Player("a")
	assert.Equal(t, "two", p.RoomID)
	checkRoomInvariants(t, r)
}

func TestJoin_SameRoomOnlyResendsSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	mustJoin(t, r, "a", "", "one")
	mustJoin(t, r, "b", "", "one")

	_, fx, err := r.Join("a", "", "one")
	require.NoError(t, err)

	require.Len(t, fx.Events, 1)
	assert.Equal(t, EvtGameJoined, fx.Events[0].Payload.Kind())
	room, _ := r.Room("one")
	assert.Len(t, room.Members, 2)
}

func TestJoin_Names(t *testing.T) {
	r := newTestRegistry(t)
	cases := []struct {
		in, want string
	}{
		{"  Alice  ", "Alice"},
		{"", "Player"},
		{"   ", "Player"},
		{strings.Repeat("é", 30), strings.Repeat("é", 24)},
	}
	for i, tc := range cases {
		id := fmt.Sprintf("p%d", i)
		mustJoin(t, r, id, tc.in, "")
		p, _ := r.Player(id)
		assert.Equal(t, tc.want, p.Name)
	}
}

func TestJoin_EmptyConnectionID(t *testing.T) {
	r := newTestRegistry(t)

	_, _, err := r.Join("", "x", "")
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestLeave_IsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	mustJoin(t, r, "a", "", "one")
	mustJoin(t, r, "b", "", "one")

	r.Leave("a")
	once := r.Players()
	snapOnce, _ := r.Snapshot("one")

	fx := r.Leave("a")
	assert.True(t, fx.Empty())
	assert.Equal(t, once, r.Players())
	snapTwice, _ := r.Snapshot("one")
	assert.Equal(t, snapOnce, snapTwice)
	checkRoomInvariants(t, r)
}

func TestLeave_LastMemberDestroysRoom(t *testing.T) {
	r := newTestRegistry(t)
	mustJoin(t, r, "a", "", "one")

	fx := r.Leave("a")

	_, ok := r.Room("one")
	assert.False(t, ok)
	assert.Empty(t, fx.Events)
	assert.Contains(t, fx.Cancels, resetKey("one"))
	assert.Contains(t, fx.Cancels, respawnKey("one", "a"))
}

func TestLeave_UnknownConnection(t *testing.T) {
	r := newTestRegistry(t)
	assert.True(t, r.Leave("ghost").Empty())
}
