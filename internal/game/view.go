package game

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/kazerdira/lupustabula/internal/apperr"
	"github.com/kazerdira/lupustabula/internal/models"
)

// PublicPlayerView is what every participant sees about every other player:
// never a role.
type PublicPlayerView struct {
	ID       uuid.UUID `json:"id"`
	Nickname string    `json:"nickname"`
	IsAlive  bool      `json:"is_alive"`
	Seat     int       `json:"seat_position"`
}

// RoleRevealEntry is the full, unredacted per-player record shown only at
// GAME_OVER.
type RoleRevealEntry struct {
	Nickname     string     `json:"nickname"`
	OriginalRole models.Role `json:"original_role"`
	FinalRole    models.Role `json:"final_role"`
	IsAlive      bool       `json:"is_alive"`
}

// GameView is the per-player redacted projection produced on every state
// read (§4.I). Fields are populated only when applicable to the requesting
// player's role and the current phase; the zero value of each is omitted by
// its JSON tag.
type GameView struct {
	GameID        string             `json:"game_id"`
	State         models.Phase       `json:"state"`
	TurnNumber    int                `json:"turn_number"`
	SecondsLeft   int                `json:"seconds_left"`
	TargetPlayers int                `json:"target_players"`
	Players       []PublicPlayerView `json:"players"`
	RolesInGame   map[models.Role]int `json:"roles_in_game"`

	YourPlayerID uuid.UUID        `json:"your_player_id"`
	YourRole     models.Role      `json:"your_role,omitempty"`
	YourAlive    bool             `json:"your_alive"`
	YourAttrs    models.PlayerAttributes `json:"your_attributes"`

	WolfTeammates []string          `json:"wolf_teammates,omitempty"`
	WolfKillVotes map[string]string `json:"wolf_kill_votes,omitempty"`
	NightMessage  string            `json:"night_message,omitempty"`

	NightDeaths []string          `json:"night_deaths,omitempty"`
	DayDeaths   []string          `json:"day_deaths,omitempty"`
	DayVotes    map[string]string `json:"day_votes,omitempty"`

	Winners          string                        `json:"winners,omitempty"`
	WinnerDetail     string                        `json:"winner_detail,omitempty"`
	Events           []models.Event                `json:"events,omitempty"`
	RoleReveal       []RoleRevealEntry             `json:"role_reveal,omitempty"`
	GuessLeaderboard []models.GuessLeaderboardEntry `json:"guess_leaderboard,omitempty"`
}

// GetState advances the clock if needed and projects the resulting state for
// the requesting user (spec §4.I, driving every GET /game_state/{code}).
func (e *Engine) GetState(ctx context.Context, code string, userID uuid.UUID) (*GameView, error) {
	unlock := e.locks.Lock(code)
	defer unlock()

	g, err := e.store.GetGame(ctx, code)
	if err != nil {
		return nil, translateNotFound(err, "game")
	}
	g, err = e.maybeAdvanceLocked(ctx, g)
	if err != nil {
		return nil, err
	}

	players, err := e.store.ListPlayers(ctx, code, false)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	var self *models.Player
	for _, p := range players {
		if p.UserID == userID {
			self = p
			break
		}
	}
	if self == nil {
		return nil, apperr.Ownership("not in this game")
	}

	view := &GameView{
		GameID:        g.ID,
		State:         g.State,
		TurnNumber:    g.TurnNumber,
		SecondsLeft:   SecondsLeft(e.clock.Now(), g.PhaseEndTime),
		TargetPlayers: g.TargetPlayers,
		RolesInGame:   g.RolesInGame,
		YourPlayerID:  self.ID,
		YourRole:      self.Role,
		YourAlive:     self.IsAlive,
		YourAttrs:     self.Attributes,
	}
	for _, p := range players {
		view.Players = append(view.Players, PublicPlayerView{
			ID: p.ID, Nickname: p.Nickname, IsAlive: p.IsAlive, Seat: p.SeatPosition,
		})
	}

	byID := make(map[uuid.UUID]*models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	switch g.State {
	case models.PhaseNight:
		if err := e.projectNight(ctx, g, self, players, byID, view); err != nil {
			return nil, err
		}
	case models.PhaseDay:
		if err := e.projectDay(ctx, g, byID, view); err != nil {
			return nil, err
		}
	case models.PhaseGameOver:
		if err := e.projectGameOver(ctx, g, players, view); err != nil {
			return nil, err
		}
	}

	return view, nil
}

func (e *Engine) projectNight(ctx context.Context, g *models.Game, self *models.Player, players []*models.Player, byID map[uuid.UUID]*models.Player, view *GameView) error {
	if models.WolfFaction[self.Role] {
		for _, p := range players {
			if p.ID != self.ID && models.WolfFaction[p.Role] {
				view.WolfTeammates = append(view.WolfTeammates, p.Nickname)
			}
		}
		kills, err := actionsOfType(ctx, e.store, g.ID, models.ActionKill)
		if err != nil {
			return err
		}
		tally := map[string]string{}
		for _, a := range kills {
			voter := byID[a.PlayerID]
			target := byID[a.TargetID]
			if voter != nil && target != nil {
				tally[voter.Nickname] = target.Nickname
			}
		}
		view.WolfKillVotes = tally
	}

	if self.Role == models.RoleMedium && g.TurnNumber >= 2 {
		view.NightMessage = mediumNightMessage(g)
	}
	if self.Role == models.RoleMassone && g.TurnNumber == 1 {
		if other := findOtherMason(players, self.ID); other != nil {
			view.NightMessage = fmt.Sprintf("%s is the other Massone", other.Nickname)
		}
	}
	return nil
}

// mediumNightMessage implements the Medium's last-burned-was-a-wolf rule.
func mediumNightMessage(g *models.Game) string {
	if g.LastDayBurnedNick == "" {
		return "nobody was burned at the stake yesterday"
	}
	if models.WolfFaction[g.LastDayBurnedRole] {
		return fmt.Sprintf("%s was a wolf", g.LastDayBurnedNick)
	}
	return fmt.Sprintf("%s was not a wolf", g.LastDayBurnedNick)
}

func (e *Engine) projectDay(ctx context.Context, g *models.Game, byID map[uuid.UUID]*models.Player, view *GameView) error {
	view.NightDeaths = g.NightDeaths
	votes, err := e.store.ListVotes(ctx, g.ID)
	if err != nil {
		return err
	}
	dayVotes := map[string]string{}
	for _, v := range votes {
		voter := byID[v.PlayerID]
		target := byID[v.TargetID]
		if voter != nil && target != nil {
			dayVotes[voter.Nickname] = target.Nickname
		}
	}
	view.DayVotes = dayVotes
	return nil
}

func (e *Engine) projectGameOver(ctx context.Context, g *models.Game, players []*models.Player, view *GameView) error {
	view.Winners = g.Winners
	view.WinnerDetail = g.WinnerDetail
	view.NightDeaths = g.NightDeaths
	view.DayDeaths = g.DayDeaths

	events, err := e.store.ListEvents(ctx, g.ID)
	if err != nil {
		return err
	}
	view.Events = events

	for _, p := range players {
		view.RoleReveal = append(view.RoleReveal, RoleRevealEntry{
			Nickname: p.Nickname, OriginalRole: p.OriginalRole, FinalRole: p.Role, IsAlive: p.IsAlive,
		})
	}

	board, err := e.guessLeaderboard(ctx, g.ID, players)
	if err != nil {
		return err
	}
	view.GuessLeaderboard = board
	return nil
}

// guessLeaderboard scores every guess against the target's frozen
// original_role and aggregates per guesser, sorted by correct count
// descending (spec §4.I, §8 property 6).
func (e *Engine) guessLeaderboard(ctx context.Context, gameID string, players []*models.Player) ([]models.GuessLeaderboardEntry, error) {
	guesses, err := e.store.ListGuesses(ctx, gameID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	type tally struct{ correct, total int }
	tallies := map[uuid.UUID]*tally{}
	for _, g := range guesses {
		guesser := byID[g.PlayerID]
		target := byID[g.TargetID]
		if guesser == nil || target == nil {
			continue
		}
		t, ok := tallies[guesser.ID]
		if !ok {
			t = &tally{}
			tallies[guesser.ID] = t
		}
		t.total++
		if g.GuessedRole == target.OriginalRole {
			t.correct++
		}
	}

	var board []models.GuessLeaderboardEntry
	for _, p := range players {
		t, ok := tallies[p.ID]
		if !ok {
			continue
		}
		board = append(board, models.GuessLeaderboardEntry{
			Nickname: p.Nickname, Role: p.OriginalRole, Correct: t.correct, Total: t.total,
		})
	}
	sort.SliceStable(board, func(i, j int) bool { return board[i].Correct > board[j].Correct })
	return board, nil
}
