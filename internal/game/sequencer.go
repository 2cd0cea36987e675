package game

import (
	"context"
	"fmt"
	"time"

	"github.com/kazerdira/lupustabula/internal/models"
)

// maybeAdvanceLocked checks the Phase Clock and, if expired, runs the
// Phase Sequencer transition for g's current phase. It is idempotent on
// repeated invocation without time passing, and safe to call before every
// read or mutation. Callers must already hold the per-game lock.
func (e *Engine) maybeAdvanceLocked(ctx context.Context, g *models.Game) (*models.Game, error) {
	now := e.clock.Now()
	if !Expired(now, g.PhaseEndTime) {
		return g, nil
	}

	switch g.State {
	case models.PhaseRoleReveal:
		if err := e.transitionToNight(ctx, g, now); err != nil {
			return nil, err
		}
	case models.PhaseNight:
		deaths, err := e.resolveNight(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("resolve night: %w", err)
		}
		if err := e.checkWinThenTransition(ctx, g, func() error {
			return e.transitionToDay(ctx, g, now, deaths)
		}); err != nil {
			return nil, err
		}
	case models.PhaseDay:
		deaths, err := e.resolveDay(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("resolve day: %w", err)
		}
		g.DayDeaths = deaths
		if err := e.checkWinThenTransition(ctx, g, func() error {
			return e.transitionToNight(ctx, g, now)
		}); err != nil {
			return nil, err
		}
	default:
		// LOBBY and GAME_OVER have no clock-driven transition.
	}

	return e.store.GetGame(ctx, g.ID)
}

// checkWinThenTransition consults the Win Detector after a resolver runs;
// on a win it finalizes the game, otherwise it runs onNoWinner (the next
// phase transition).
func (e *Engine) checkWinThenTransition(ctx context.Context, g *models.Game, onNoWinner func() error) error {
	players, err := e.store.ListPlayers(ctx, g.ID, false)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	result := checkWin(players)
	if result.Winner {
		return e.finalizeWin(ctx, g, result)
	}
	return onNoWinner()
}

// transitionToNight clears actions/votes, bumps turn_number, and opens the
// NIGHT phase. Used both for ROLE_REVEAL -> NIGHT and DAY -> NIGHT.
func (e *Engine) transitionToNight(ctx context.Context, g *models.Game, now time.Time) error {
	if err := e.store.ClearActions(ctx, g.ID); err != nil {
		return err
	}
	if err := e.store.ClearVotes(ctx, g.ID); err != nil {
		return err
	}
	g.State = models.PhaseNight
	g.TurnNumber++
	g.NightDeaths = nil
	g.PhaseEndTime = now.Add(models.NightDuration)
	if err := e.store.UpdateGame(ctx, g); err != nil {
		return err
	}
	return e.store.AppendEvent(ctx, g.ID, models.Event{
		Turn: g.TurnNumber, Phase: models.PhaseNight, Type: "night_start",
		Detail: fmt.Sprintf("Night %d begins", g.TurnNumber),
	})
}

// transitionToDay opens the DAY phase with the Night Resolver's death list.
func (e *Engine) transitionToDay(ctx context.Context, g *models.Game, now time.Time, nightDeaths []string) error {
	if err := e.store.ClearVotes(ctx, g.ID); err != nil {
		return err
	}
	g.State = models.PhaseDay
	g.PhaseEndTime = now.Add(models.DayDuration)
	g.NightDeaths = nightDeaths
	g.DayDeaths = nil
	if err := e.store.UpdateGame(ctx, g); err != nil {
		return err
	}
	return e.store.AppendEvent(ctx, g.ID, models.Event{
		Turn: g.TurnNumber, Phase: models.PhaseDay, Type: "day_start",
		Detail: fmt.Sprintf("Day %d begins", g.TurnNumber),
	})
}

// startGame assigns roles, freezes original_role, and opens ROLE_REVEAL.
// Invoked once the lobby reaches target_players (spec §4.H "Join complete").
func (e *Engine) startGame(ctx context.Context, g *models.Game, now time.Time) error {
	players, err := e.store.ListPlayers(ctx, g.ID, false)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	roles := AssignRoles(len(players))
	for i, p := range players {
		p.Role = roles[i]
		p.OriginalRole = roles[i]
		p.Attributes = models.PlayerAttributes{}
		if err := e.store.UpdatePlayer(ctx, p); err != nil {
			return fmt.Errorf("assign role to %s: %w", p.ID, err)
		}
	}

	g.State = models.PhaseRoleReveal
	g.PhaseEndTime = now.Add(models.RoleRevealDuration)
	g.RolesInGame = RolesInGame(roles)
	if err := e.store.UpdateGame(ctx, g); err != nil {
		return err
	}
	return e.store.AppendEvent(ctx, g.ID, models.Event{
		Turn: 0, Phase: models.PhaseRoleReveal, Type: "roles_assigned",
		Detail: "roles have been assigned, reveal underway",
	})
}
