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

// testGame seeds a game already in NIGHT (turn 1) with the given roles
// assigned (bypassing JoinGame so tests can control exact seating and role
// mix).
func testGame(t *testing.T, store *memStore, roles []models.Role) (*Engine, *models.Game, []*models.Player) {
	t.Helper()
	clock := &fakeClock{now: time.Now()}
	e := NewEngine(store, clock)

	code := "TEST1"
	g := &models.Game{
		ID: code, State: models.PhaseNight, TargetPlayers: len(roles), TurnNumber: 1,
		PhaseEndTime: clock.now.Add(time.Second), CreatedAt: clock.now,
		RolesInGame: RolesInGame(roles),
	}
	require.NoError(t, store.CreateGame(context.Background(), g))

	var players []*models.Player
	for i, r := range roles {
		p := &models.Player{
			ID: uuid.New(), GameID: code, UserID: uuid.New(),
			Nickname: roleSeatName(r, i), Role: r, OriginalRole: r, IsAlive: true, SeatPosition: i,
		}
		require.NoError(t, store.CreatePlayer(context.Background(), p))
		players = append(players, p)
	}
	return e, g, players
}

func roleSeatName(r models.Role, i int) string {
	return string(r) + "_" + string(rune('A'+i))
}

func findByRole(players []*models.Player, r models.Role) *models.Player {
	for _, p := range players {
		if p.Role == r {
			return p
		}
	}
	return nil
}

// S1 - Minimum game, wolf kill.
func TestScenario_S1_MinimumGameWolfKill(t *testing.T) {
	store := newMemStore()
	roles := []models.Role{models.RoleLupo, models.RoleVeggente, models.RoleVillico, models.RoleVillico, models.RoleVillico, models.RoleVillico}
	e, g, players := testGame(t, store, roles)

	lupo := findByRole(players, models.RoleLupo)
	victim := players[2] // first Villico seat
	require.NoError(t, store.UpsertAction(context.Background(), &models.Action{
		ID: uuid.New(), GameID: g.ID, PlayerID: lupo.ID, ActionType: models.ActionKill, TargetID: victim.ID,
	}))

	deaths, err := e.resolveNight(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, []string{victim.Nickname}, deaths)

	updated, _ := store.GetPlayer(context.Background(), victim.ID)
	assert.False(t, updated.IsAlive)
}

// S2 - Protection saves.
func TestScenario_S2_ProtectionSaves(t *testing.T) {
	store := newMemStore()
	roles := make([]models.Role, 0, 11)
	roles = append(roles, models.RoleLupo, models.RoleLupo, models.RoleVeggente, models.RoleProtettore)
	for len(roles) < 11 {
		roles = append(roles, models.RoleVillico)
	}
	e, g, players := testGame(t, store, roles)

	lupo1, lupo2 := players[0], players[1]
	veggente := findByRole(players, models.RoleVeggente)
	protettore := findByRole(players, models.RoleProtettore)

	ctx := context.Background()
	require.NoError(t, store.UpsertAction(ctx, &models.Action{ID: uuid.New(), GameID: g.ID, PlayerID: lupo1.ID, ActionType: models.ActionKill, TargetID: veggente.ID}))
	require.NoError(t, store.UpsertAction(ctx, &models.Action{ID: uuid.New(), GameID: g.ID, PlayerID: lupo2.ID, ActionType: models.ActionKill, TargetID: veggente.ID}))
	require.NoError(t, store.UpsertAction(ctx, &models.Action{ID: uuid.New(), GameID: g.ID, PlayerID: protettore.ID, ActionType: models.ActionProtect, TargetID: veggente.ID}))

	deaths, err := e.resolveNight(ctx, g)
	require.NoError(t, err)
	assert.Empty(t, deaths)

	events, _ := store.ListEvents(ctx, g.ID)
	assert.Condition(t, func() bool {
		for _, ev := range events {
			if ev.Type == "protected" {
				return true
			}
		}
		return false
	})
}

// S3 - Wolf tie, nobody dies.
func TestScenario_S3_WolfTieNobodyDies(t *testing.T) {
	store := newMemStore()
	roles := make([]models.Role, 0, 8)
	roles = append(roles, models.RoleLupo, models.RoleLupo)
	for len(roles) < 8 {
		roles = append(roles, models.RoleVillico)
	}
	e, g, players := testGame(t, store, roles)

	lupo1, lupo2 := players[0], players[1]
	a, b := players[2], players[3]

	ctx := context.Background()
	require.NoError(t, store.UpsertAction(ctx, &models.Action{ID: uuid.New(), GameID: g.ID, PlayerID: lupo1.ID, ActionType: models.ActionKill, TargetID: a.ID}))
	require.NoError(t, store.UpsertAction(ctx, &models.Action{ID: uuid.New(), GameID: g.ID, PlayerID: lupo2.ID, ActionType: models.ActionKill, TargetID: b.ID}))

	deaths, err := e.resolveNight(ctx, g)
	require.NoError(t, err)
	assert.Empty(t, deaths)
}

// S4 - Kamikaze chain through Protettore.
func TestScenario_S4_KamikazeChainThroughProtettore(t *testing.T) {
	store := newMemStore()
	roles := make([]models.Role, 0, 16)
	roles = append(roles, models.RoleKamikaze, models.RoleProtettore, models.RoleVillico)
	for len(roles) < 16 {
		roles = append(roles, models.RoleVillico)
	}
	e, g, players := testGame(t, store, roles)

	kamikaze := findByRole(players, models.RoleKamikaze)
	protettore := findByRole(players, models.RoleProtettore)
	v := players[2]

	ctx := context.Background()
	require.NoError(t, store.UpsertAction(ctx, &models.Action{ID: uuid.New(), GameID: g.ID, PlayerID: protettore.ID, ActionType: models.ActionProtect, TargetID: v.ID}))
	require.NoError(t, store.UpsertAction(ctx, &models.Action{ID: uuid.New(), GameID: g.ID, PlayerID: kamikaze.ID, ActionType: models.ActionExplode, TargetID: protettore.ID}))

	deaths, err := e.resolveNight(ctx, g)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{kamikaze.Nickname, protettore.Nickname, v.Nickname}, deaths)
}

// S5 - Mitomane copies a Lupo.
func TestScenario_S5_MitomaneCopiesLupo(t *testing.T) {
	store := newMemStore()
	roles := make([]models.Role, 0, 17)
	roles = append(roles, models.RoleLupo, models.RoleMitomane)
	for len(roles) < 17 {
		roles = append(roles, models.RoleVillico)
	}
	e, g, players := testGame(t, store, roles)
	g.TurnNumber = 2

	lupo := findByRole(players, models.RoleLupo)
	mitomane := findByRole(players, models.RoleMitomane)

	ctx := context.Background()
	require.NoError(t, store.UpsertAction(ctx, &models.Action{ID: uuid.New(), GameID: g.ID, PlayerID: mitomane.ID, ActionType: models.ActionCopy, TargetID: lupo.ID}))

	_, err := e.resolveNight(ctx, g)
	require.NoError(t, err)

	updated, _ := store.GetPlayer(ctx, mitomane.ID)
	assert.Equal(t, models.RoleLupo, updated.Role)
	assert.Equal(t, models.RoleMitomane, updated.OriginalRole)
	assert.True(t, perPlayerWon(updated, models.WinnerWolves))
}

// S6 - Day tie burns all.
func TestScenario_S6_DayTieBurnsAll(t *testing.T) {
	store := newMemStore()
	roles := make([]models.Role, 0, 7)
	for len(roles) < 7 {
		roles = append(roles, models.RoleVillico)
	}
	e, g, players := testGame(t, store, roles)
	g.State = models.PhaseDay

	x, y := players[0], players[1]
	voters := players[2:7] // 5 voters, split 3-... actually we craft exact 3-3

	ctx := context.Background()
	// 3 vote for x, 3 vote for y, 1 abstains (only 6 active voters needed)
	require.NoError(t, store.UpsertVote(ctx, &models.Vote{ID: uuid.New(), GameID: g.ID, PlayerID: voters[0].ID, TargetID: x.ID}))
	require.NoError(t, store.UpsertVote(ctx, &models.Vote{ID: uuid.New(), GameID: g.ID, PlayerID: voters[1].ID, TargetID: x.ID}))
	require.NoError(t, store.UpsertVote(ctx, &models.Vote{ID: uuid.New(), GameID: g.ID, PlayerID: voters[2].ID, TargetID: x.ID}))
	require.NoError(t, store.UpsertVote(ctx, &models.Vote{ID: uuid.New(), GameID: g.ID, PlayerID: voters[3].ID, TargetID: y.ID}))
	require.NoError(t, store.UpsertVote(ctx, &models.Vote{ID: uuid.New(), GameID: g.ID, PlayerID: voters[4].ID, TargetID: y.ID}))
	require.NoError(t, store.UpsertVote(ctx, &models.Vote{ID: uuid.New(), GameID: g.ID, PlayerID: x.ID, TargetID: y.ID}))

	deaths, err := e.resolveDay(ctx, g)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{x.Nickname, y.Nickname}, deaths)

	// x received the first vote cast, so x heads the tied targets and is the
	// one the Medium's next-night message reports.
	assert.Equal(t, x.Nickname, g.LastDayBurnedNick)
}

// S7 - Criceto lone survivor.
func TestScenario_S7_CricetoLoneSurvivor(t *testing.T) {
	lupo := &models.Player{ID: uuid.New(), Role: models.RoleLupo, OriginalRole: models.RoleLupo, IsAlive: true}
	criceto := &models.Player{ID: uuid.New(), Role: models.RoleCriceto, OriginalRole: models.RoleCriceto, IsAlive: true}

	result := checkWin([]*models.Player{lupo, criceto})
	require.True(t, result.Winner)
	assert.Equal(t, models.WinnerHamster, result.Label)
}
