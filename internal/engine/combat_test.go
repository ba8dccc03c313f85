package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func duel(t *testing.T) *Registry {
	t.Helper()
	r := newTestRegistry(t)
	mustJoin(t, r, "a", "Alice", "arena")
	mustJoin(t, r, "b", "Bob", "arena")
	mustJoin(t, r, "c", "Carol", "arena")
	return r
}

func TestApplyHit_DamageVsKill(t *testing.T) {
	cases := []struct {
		name        string
		damage      int
		wantOutcome Outcome
		wantHealth  int
		wantKills   int
		wantDeaths  int
	}{
		{"grazing hit", 25, OutcomeDamaged, 75, 0, 0},
		{"one below lethal", 99, OutcomeDamaged, 1, 0, 0},
		{"exactly lethal", 100, OutcomeKilled, 100, 1, 1},
		{"overkill", 250, OutcomeKilled, 100, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := duel(t)

			outcome, _, err := r.ApplyHit("a", "b", tc.damage)
			require.NoError(t, err)

			assert.Equal(t, tc.wantOutcome, outcome)
			target, _ := r.Player("b")
			assert.Equal(t, tc.wantHealth, target.Health)
			room, _ := r.Room("arena")
			assert.Equal(t, tc.wantKills, room.Scores["a"].Kills)
			assert.Equal(t, tc.wantDeaths, room.Scores["b"].Deaths)
			assert.Equal(t, 0, room.Scores["a"].Deaths)
			assert.Equal(t, 0, room.Scores["b"].Kills)
		})
	}
}

func TestApplyHit_DamageEventGoesToTargetOnly(t *testing.T) {
	r := duel(t)

	_, fx, err := r.ApplyHit("a", "b", 30)
	require.NoError(t, err)

	require.Len(t, fx.Events, 1)
	assert.Equal(t, []string{"b"}, fx.Events[0].To)
	assert.Equal(t, PlayerDamaged{AttackerID: "a", Damage: 30, Health: 70}, fx.Events[0].Payload)
	assert.Empty(t, fx.Tasks)
}

func TestApplyHit_KillBroadcastsAndSchedulesRespawn(t *testing.T) {
	r := duel(t)
	_, err := r.ApplyShot("a", "Sniper", Vec3{}, Vec3{0, 0, 1})
	require.NoError(t, err)

	_, fx, err := r.ApplyHit("a", "b", 100)
	require.NoError(t, err)

	killed := eventsOf(fx, EvtPlayerKilled)
	require.Len(t, killed, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, killed[0].To)
	assert.Equal(t, PlayerKilled{
		KillerID:   "a",
		TargetID:   "b",
		KillerName: "Alice",
		TargetName: "Bob",
		Weapon:     "Sniper",
	}, killed[0].Payload)

	require.Len(t, fx.Tasks, 1)
	task := fx.Tasks[0]
	assert.Equal(t, respawnKey("arena", "b"), task.Key)
	assert.Equal(t, r.rules.RespawnDelay, task.Delay)

	target, _ := r.Player("b")
	assert.True(t, target.Respawning)
}

func TestApplyHit_TwoSixtiesKillOnce(t *testing.T) {
	r := duel(t)

	first, _, err := r.ApplyHit("a", "b", 60)
	require.NoError(t, err)
	second, _, err := r.ApplyHit("c", "b", 60)
	require.NoError(t, err)
	third, _, err := r.ApplyHit("a", "b", 60)
	require.NoError(t, err)

	assert.Equal(t, OutcomeDamaged, first)
	assert.Equal(t, OutcomeKilled, second)
	assert.Equal(t, OutcomeIgnored, third, "respawning target takes no damage")

	room, _ := r.Room("arena")
	assert.Equal(t, 0, room.Scores["a"].Kills)
	assert.Equal(t, 1, room.Scores["c"].Kills)
	assert.Equal(t, 1, room.Scores["b"].Deaths)
}

func TestApplyHit_Rejections(t *testing.T) {
	r := duel(t)
	mustJoin(t, r, "x", "Xavier", "elsewhere")

	cases := []struct {
		name     string
		attacker string
		target   string
		damage   int
		wantErr  error
	}{
		{"attacker not seated", "ghost", "b", 10, ErrUnknownRoomReference},
		{"cross room", "a", "x", 10, ErrCrossRoomReference},
		{"self hit", "a", "a", 10, ErrProtocol},
		{"zero damage", "a", "b", 0, ErrProtocol},
		{"negative damage", "a", "b", -5, ErrProtocol},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome, fx, err := r.ApplyHit(tc.attacker, tc.target, tc.damage)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, OutcomeIgnored, outcome)
			assert.True(t, fx.Empty())
		})
	}

	b, _ := r.Player("b")
	assert.Equal(t, MaxHealth, b.Health)
}

func TestApplyHit_VanishedTargetIsIgnored(t *testing.T) {
	r := duel(t)

	outcome, fx, err := r.ApplyHit("a", "gone", 50)

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.True(t, fx.Empty())
}

func TestFireRespawn(t *testing.T) {
	r := duel(t)
	_, fx, err := r.ApplyHit("a", "b", 100)
	require.NoError(t, err)
	task := fx.Tasks[0]

	out := r.Fire(task)

	require.Len(t, out.Events, 1)
	assert.Equal(t, []string{"b"}, out.Events[0].To)
	ev := out.Events[0].Payload.(PlayerRespawn)
	assert.Equal(t, MaxHealth, ev.Health)
	assert.Contains(t, stubCatalog{}.SpawnPoints(MapWinter, TeamBlue), ev.Position)

	b, _ := r.Player("b")
	assert.False(t, b.Respawning)
	assert.Equal(t, ev.Position, b.Position)

	assert.True(t, r.Fire(task).Empty(), "second fire is a no-op")
}

func TestFireRespawn_AfterDisconnect(t *testing.T) {
	r := duel(t)
	_, fx, err := r.ApplyHit("a", "b", 100)
	require.NoError(t, err)

	leave := r.Leave("b")
	assert.Contains(t, leave.Cancels, fx.Tasks[0].Key)

	assert.NotPanics(t, func() {
		assert.True(t, r.Fire(fx.Tasks[0]).Empty())
	})
	_, ok := r.Player("b")
	assert.False(t, ok, "respawn must not resurrect a removed player")
}

func TestFireRespawn_StaleGeneration(t *testing.T) {
	r := duel(t)
	_, first, _ := r.ApplyHit("a", "b", 100)
	r.Fire(first.Tasks[0])
	_, second, _ := r.ApplyHit("a", "b", 100)

	assert.True(t, r.Fire(first.Tasks[0]).Empty())
	assert.False(t, r.Fire(second.Tasks[0]).Empty())
}

func TestApplyShot(t *testing.T) {
	r := duel(t)

	fx, err := r.ApplyShot("a", "Shotgun", Vec3{1, 2, 3}, Vec3{0, 0, 1})
	require.NoError(t, err)

	require.Len(t, fx.Events, 1)
	assert.ElementsMatch(t, []string{"b", "c"}, fx.Events[0].To)
	assert.Equal(t, PlayerShot{ID: "a", WeaponType: "Shotgun", Position: Vec3{1, 2, 3}, Direction: Vec3{0, 0, 1}}, fx.Events[0].Payload)
	a, _ := r.Player("a")
	assert.Equal(t, "Shotgun", a.Weapon)

	_, err = r.ApplyShot("a", "Railgun", Vec3{}, Vec3{})
	assert.ErrorIs(t, err, ErrProtocol)
	_, err = r.ApplyShot("ghost", "SMG", Vec3{}, Vec3{})
	assert.ErrorIs(t, err, ErrUnknownRoomReference)
}

func TestApplyMove(t *testing.T) {
	r := duel(t)

	fx, err := r.ApplyMove("b", Vec3{4, 1, 4}, Vec3{0, 1.5, 0})
	require.NoError(t, err)

	require.Len(t, fx.Events, 1)
	assert.ElementsMatch(t, []string{"a", "c"}, fx.Events[0].To)
	b, _ := r.Player("b")
	assert.Equal(t, Vec3{4, 1, 4}, b.Position)
	assert.Equal(t, Vec3{0, 1.5, 0}, b.Rotation)

	_, err = r.ApplyMove("b", Vec3{math.NaN(), 0, 0}, Vec3{})
	assert.ErrorIs(t, err, ErrProtocol)
	_, err = r.ApplyMove("b", Vec3{}, Vec3{0, math.Inf(1), 0})
	assert.ErrorIs(t, err, ErrProtocol)
	_, err = r.ApplyMove("ghost", Vec3{}, Vec3{})
	assert.ErrorIs(t, err, ErrUnknownRoomReference)
}

func TestApplyMove_AloneInRoomEmitsNothing(t *testing.T) {
	r := newTestRegistry(t)
	mustJoin(t, r, "solo", "", "")

	fx, err := r.ApplyMove("solo", Vec3{1, 1, 1}, Vec3{})
	require.NoError(t, err)
	assert.Empty(t, fx.Events)
}
