package game

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/kazerdira/lupustabula/internal/models"
)

// resolveDay tallies the public lynch votes and applies the tie-all-die
// rule (spec §4.F). Returns the ordered list of nicknames who were burned.
// Callers must hold the per-game lock.
func (e *Engine) resolveDay(ctx context.Context, g *models.Game) ([]string, error) {
	votes, err := e.store.ListVotes(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	if len(votes) == 0 {
		return nil, nil
	}
	log.Printf("✓ DayResolver - session %s: resolving day %d, %d votes cast", g.ID, g.TurnNumber, len(votes))

	players, err := e.store.ListPlayers(ctx, g.ID, false)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	// votes arrives in the order each voter first cast theirs; walking it
	// in that order and recording each target's first appearance gives the
	// same tie order the received-order tally this is ported from uses,
	// rather than an arbitrary id sort.
	tally := map[uuid.UUID]int{}
	var order []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, v := range votes {
		tally[v.TargetID]++
		if !seen[v.TargetID] {
			seen[v.TargetID] = true
			order = append(order, v.TargetID)
		}
	}
	max := 0
	for _, c := range tally {
		if c > max {
			max = c
		}
	}
	var topTargets []uuid.UUID
	for _, tid := range order {
		if tally[tid] == max {
			topTargets = append(topTargets, tid)
		}
	}

	if len(topTargets) > 1 {
		log.Printf("✓ DayResolver - session %s: vote tied among %d players, all burned", g.ID, len(topTargets))
	}

	var dayDeaths []string
	for _, tid := range topTargets {
		victim := byID[tid]
		if victim == nil || !victim.IsAlive {
			continue
		}
		victim.IsAlive = false
		dayDeaths = append(dayDeaths, victim.Nickname)
		if err := e.store.AppendEvent(ctx, g.ID, models.Event{
			Turn:   g.TurnNumber,
			Phase:  models.PhaseDay,
			Type:   "burned",
			Detail: fmt.Sprintf("%s was burned at the stake (was %s)", victim.Nickname, victim.Role),
		}); err != nil {
			return nil, err
		}
		if err := e.store.UpdatePlayer(ctx, victim); err != nil {
			return nil, fmt.Errorf("persist player %s: %w", victim.ID, err)
		}
	}

	if len(dayDeaths) > 0 {
		first := byID[topTargets[0]]
		g.LastDayBurnedNick = first.Nickname
		g.LastDayBurnedRole = first.Role
	}

	log.Printf("✓ DayResolver - session %s: day %d burned: %v", g.ID, g.TurnNumber, dayDeaths)
	return dayDeaths, nil
}
