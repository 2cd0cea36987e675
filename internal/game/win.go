package game

import (
	"context"
	"fmt"

	"github.com/kazerdira/lupustabula/internal/models"
)

// WinResult is the outcome of a Win Detector check.
type WinResult struct {
	Winner bool
	Label  string
	Detail string
}

// checkWin partitions living players per spec §4.G and decides whether a
// faction has won. evilAlive intentionally excludes Indemoniato from wolf
// numerical power while still counting Indemoniato as an evil-faction
// winner in perPlayerWon below.
func checkWin(players []*models.Player) WinResult {
	var evilAlive, nonEvilAlive []*models.Player
	criceroAlive := false
	for _, p := range players {
		if !p.IsAlive {
			continue
		}
		if p.Role == models.RoleCriceto {
			criceroAlive = true
		}
		if isWolfPower(p.Role) {
			evilAlive = append(evilAlive, p)
		} else {
			nonEvilAlive = append(nonEvilAlive, p)
		}
	}

	if len(evilAlive) == 0 {
		if criceroAlive {
			return WinResult{Winner: true, Label: models.WinnerHamster, Detail: "the Criceto Mannaro survived and wins alone"}
		}
		return WinResult{Winner: true, Label: models.WinnerVillage, Detail: "all the wolves have been eliminated"}
	}

	if len(evilAlive) >= len(nonEvilAlive) {
		if criceroAlive {
			return WinResult{Winner: true, Label: models.WinnerHamster, Detail: "the Criceto Mannaro survived and wins alone"}
		}
		return WinResult{Winner: true, Label: models.WinnerWolves, Detail: "the wolves have taken over the village"}
	}

	return WinResult{Winner: false}
}

// isWolfPower reports whether role counts toward wolf numerical power:
// Lupo, Kamikaze, Oracolo — Indemoniato is deliberately excluded.
func isWolfPower(role models.Role) bool {
	return role == models.RoleLupo || role == models.RoleKamikaze || role == models.RoleOracolo
}

// perPlayerWon implements the per-player victory rule for a given winner
// label (spec §4.G).
func perPlayerWon(p *models.Player, winner string) bool {
	switch winner {
	case models.WinnerHamster:
		return p.Role == models.RoleCriceto && p.IsAlive
	case models.WinnerWolves:
		return models.EvilFaction[p.Role]
	case models.WinnerVillage:
		return !models.EvilFaction[p.Role] && p.Role != models.RoleCriceto
	default:
		return false
	}
}

// finalizeWin transitions g to GAME_OVER and updates every player's stats.
// Callers must hold the per-game lock.
func (e *Engine) finalizeWin(ctx context.Context, g *models.Game, result WinResult) error {
	g.State = models.PhaseGameOver
	g.Winners = result.Label
	g.WinnerDetail = result.Detail
	g.PhaseEndTime = timeZero
	if err := e.store.UpdateGame(ctx, g); err != nil {
		return fmt.Errorf("finalize game: %w", err)
	}
	if err := e.store.AppendEvent(ctx, g.ID, models.Event{
		Turn:   g.TurnNumber,
		Phase:  models.PhaseGameOver,
		Type:   "game_end",
		Detail: fmt.Sprintf("winner: %s. %s", result.Label, result.Detail),
	}); err != nil {
		return err
	}

	players, err := e.store.ListPlayers(ctx, g.ID, false)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	for _, p := range players {
		won := perPlayerWon(p, result.Label)
		wolfWin := won && result.Label == models.WinnerWolves
		villageWin := won && result.Label == models.WinnerVillage
		if err := e.store.IncrementUserStats(ctx, p.UserID, won, wolfWin, villageWin); err != nil {
			return fmt.Errorf("update stats for %s: %w", p.UserID, err)
		}
	}
	return nil
}
