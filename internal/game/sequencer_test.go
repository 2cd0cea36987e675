package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazerdira/lupustabula/internal/models"
)

func TestMaybeAdvance_NoopBeforeDeadline(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{now: time.Now()}
	e := NewEngine(store, clock)

	g := &models.Game{ID: "SEQ1", State: models.PhaseNight, TargetPlayers: 6, TurnNumber: 1,
		PhaseEndTime: clock.now.Add(time.Minute)}
	require.NoError(t, store.CreateGame(context.Background(), g))

	updated, err := e.maybeAdvanceLocked(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseNight, updated.State)
	assert.Equal(t, 1, updated.TurnNumber)
}

func TestMaybeAdvance_RoleRevealTransitionsToNight(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{now: time.Now()}
	e := NewEngine(store, clock)

	g := &models.Game{ID: "SEQ2", State: models.PhaseRoleReveal, TargetPlayers: 6, TurnNumber: 0,
		PhaseEndTime: clock.now.Add(-time.Second)}
	require.NoError(t, store.CreateGame(context.Background(), g))

	updated, err := e.maybeAdvanceLocked(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseNight, updated.State)
	assert.Equal(t, 1, updated.TurnNumber)
	assert.True(t, updated.PhaseEndTime.After(clock.now))
}

func TestMaybeAdvance_NightExpiresIntoDayWithoutWinner(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{now: time.Now()}
	e := NewEngine(store, clock)

	roles := []models.Role{models.RoleLupo, models.RoleVillico, models.RoleVillico, models.RoleVillico, models.RoleVillico, models.RoleVillico}
	g := &models.Game{ID: "SEQ3", State: models.PhaseNight, TargetPlayers: len(roles), TurnNumber: 1,
		PhaseEndTime: clock.now.Add(-time.Second), RolesInGame: RolesInGame(roles)}
	require.NoError(t, store.CreateGame(context.Background(), g))
	for i, r := range roles {
		p := &models.Player{ID: uuid.New(), GameID: g.ID, UserID: uuid.New(), Nickname: roleSeatName(r, i),
			Role: r, OriginalRole: r, IsAlive: true, SeatPosition: i}
		require.NoError(t, store.CreatePlayer(context.Background(), p))
	}

	updated, err := e.maybeAdvanceLocked(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDay, updated.State)
}

func TestMaybeAdvance_NightWinEndsGameInsteadOfOpeningDay(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{now: time.Now()}
	e := NewEngine(store, clock)

	// 1 Lupo + 1 Villico left alive; the Lupo kills the lone Villico tonight
	// so the village is wiped out and the night must end the game directly.
	roles := []models.Role{models.RoleLupo, models.RoleVillico}
	g := &models.Game{ID: "SEQ4", State: models.PhaseNight, TargetPlayers: 2, TurnNumber: 1,
		PhaseEndTime: clock.now.Add(-time.Second), RolesInGame: RolesInGame(roles)}
	require.NoError(t, store.CreateGame(context.Background(), g))

	var lupo, villico *models.Player
	for i, r := range roles {
		p := &models.Player{ID: uuid.New(), GameID: g.ID, UserID: uuid.New(), Nickname: roleSeatName(r, i),
			Role: r, OriginalRole: r, IsAlive: true, SeatPosition: i}
		require.NoError(t, store.CreatePlayer(context.Background(), p))
		if r == models.RoleLupo {
			lupo = p
		} else {
			villico = p
		}
	}
	require.NoError(t, store.UpsertAction(context.Background(), &models.Action{
		ID: uuid.New(), GameID: g.ID, PlayerID: lupo.ID, ActionType: models.ActionKill, TargetID: villico.ID,
	}))

	updated, err := e.maybeAdvanceLocked(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseGameOver, updated.State)
	assert.Equal(t, models.WinnerWolves, updated.Winners)
}

func TestMaybeAdvance_DayExpiresIntoNextNight(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{now: time.Now()}
	e := NewEngine(store, clock)

	roles := []models.Role{models.RoleLupo, models.RoleVillico, models.RoleVillico, models.RoleVillico}
	g := &models.Game{ID: "SEQ5", State: models.PhaseDay, TargetPlayers: len(roles), TurnNumber: 1,
		PhaseEndTime: clock.now.Add(-time.Second), RolesInGame: RolesInGame(roles)}
	require.NoError(t, store.CreateGame(context.Background(), g))
	for i, r := range roles {
		p := &models.Player{ID: uuid.New(), GameID: g.ID, UserID: uuid.New(), Nickname: roleSeatName(r, i),
			Role: r, OriginalRole: r, IsAlive: true, SeatPosition: i}
		require.NoError(t, store.CreatePlayer(context.Background(), p))
	}

	updated, err := e.maybeAdvanceLocked(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseNight, updated.State)
	assert.Equal(t, 2, updated.TurnNumber)
}

func TestMaybeAdvance_GameOverNeverReAdvances(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{now: time.Now()}
	e := NewEngine(store, clock)

	g := &models.Game{ID: "SEQ6", State: models.PhaseGameOver, TargetPlayers: 6,
		PhaseEndTime: clock.now.Add(-time.Hour)}
	require.NoError(t, store.CreateGame(context.Background(), g))

	updated, err := e.maybeAdvanceLocked(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseGameOver, updated.State)
}
