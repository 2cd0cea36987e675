package game

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"github.com/kazerdira/lupustabula/internal/models"
)

// resolveNight runs the six-step night pipeline (spec §4.E) and returns the
// ordered, unique list of nicknames who died. Callers must hold the
// per-game lock and have already confirmed the NIGHT phase has expired.
func (e *Engine) resolveNight(ctx context.Context, g *models.Game) ([]string, error) {
	players, err := e.store.ListPlayers(ctx, g.ID, false)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	turn := g.TurnNumber
	log.Printf("✓ NightResolver - session %s: resolving night %d", g.ID, turn)
	deathOrder := []string{}
	deathSet := map[uuid.UUID]bool{}
	kill := func(p *models.Player) {
		if p == nil || !p.IsAlive {
			return
		}
		p.IsAlive = false
		if !deathSet[p.ID] {
			deathSet[p.ID] = true
			deathOrder = append(deathOrder, p.Nickname)
		}
	}
	event := func(typ, detail string) error {
		return e.store.AppendEvent(ctx, g.ID, models.Event{Turn: turn, Phase: models.PhaseNight, Type: typ, Detail: detail})
	}

	// Step 1 — Mitomane copy, turn 2 only.
	if turn == 2 {
		copyActions, err := actionsOfType(ctx, e.store, g.ID, models.ActionCopy)
		if err != nil {
			return nil, err
		}
		for _, a := range copyActions {
			mitomane := byID[a.PlayerID]
			target := byID[a.TargetID]
			if mitomane == nil || target == nil || !mitomane.IsAlive {
				continue
			}
			switch {
			case models.WolfFaction[target.Role]:
				mitomane.Role = models.RoleLupo
				if err := event("mitomane_copy", fmt.Sprintf("%s copied a Wolf and becomes a Wolf", mitomane.Nickname)); err != nil {
					return nil, err
				}
			case target.Role == models.RoleVeggente:
				mitomane.Role = models.RoleVeggente
				if err := event("mitomane_copy", fmt.Sprintf("%s copied the Seer and becomes the Seer", mitomane.Nickname)); err != nil {
					return nil, err
				}
			default:
				mitomane.Role = models.RoleVillico
				if err := event("mitomane_copy", fmt.Sprintf("%s copied a role with no effect, stays Villico", mitomane.Nickname)); err != nil {
					return nil, err
				}
			}
		}
	}

	// Step 2 — Protections.
	protectActions, err := actionsOfType(ctx, e.store, g.ID, models.ActionProtect)
	if err != nil {
		return nil, err
	}
	protected := map[uuid.UUID]bool{}
	protectorOf := map[uuid.UUID]uuid.UUID{}
	for _, a := range protectActions {
		protector := byID[a.PlayerID]
		if protector == nil || !protector.IsAlive {
			continue
		}
		protected[a.TargetID] = true
		protectorOf[a.TargetID] = a.PlayerID
		if target := byID[a.TargetID]; target != nil {
			if err := event("protect", fmt.Sprintf("the Protettore protects %s", target.Nickname)); err != nil {
				return nil, err
			}
		}
	}

	// Step 3 — Wolf kill.
	killActions, err := actionsOfType(ctx, e.store, g.ID, models.ActionKill)
	if err != nil {
		return nil, err
	}
	if len(killActions) > 0 {
		tally := map[uuid.UUID]int{}
		for _, a := range killActions {
			tally[a.TargetID]++
		}
		max := 0
		for _, c := range tally {
			if c > max {
				max = c
			}
		}
		var topTargets []uuid.UUID
		for tid, c := range tally {
			if c == max {
				topTargets = append(topTargets, tid)
			}
		}
		sort.Slice(topTargets, func(i, j int) bool { return topTargets[i].String() < topTargets[j].String() })

		capacity := 1
		if len(players) >= 19 {
			capacity = 2
		}

		var victims []uuid.UUID
		if len(topTargets) <= capacity {
			victims = topTargets
		} else {
			log.Printf("✓ NightResolver - session %s: wolf kill tied, nobody dies", g.ID)
			if err := event("wolf_tie", "the wolves could not agree, nobody dies"); err != nil {
				return nil, err
			}
		}

		for _, vid := range victims {
			victim := byID[vid]
			if victim == nil || !victim.IsAlive {
				continue
			}
			if victim.Role == models.RoleCriceto {
				if err := event("criceto_immune", fmt.Sprintf("the wolves attacked %s (Criceto Mannaro) but they do not die", victim.Nickname)); err != nil {
					return nil, err
				}
				continue
			}
			if protected[vid] {
				if err := event("protected", fmt.Sprintf("the wolves attacked %s but they were protected", victim.Nickname)); err != nil {
					return nil, err
				}
				continue
			}
			kill(victim)
			if err := event("wolf_kill", fmt.Sprintf("the wolves killed %s", victim.Nickname)); err != nil {
				return nil, err
			}
			if victim.Role == models.RoleMassone {
				if other := findOtherMason(players, victim.ID); other != nil && other.IsAlive {
					if protected[other.ID] {
						if err := event("mason_protected", fmt.Sprintf("the other mason %s was protected and survives", other.Nickname)); err != nil {
							return nil, err
						}
					} else {
						kill(other)
						if err := event("mason_chain", fmt.Sprintf("the mason %s dies alongside their partner", other.Nickname)); err != nil {
							return nil, err
						}
					}
				}
			}
		}
	}

	// Step 4 — Kamikaze explosion.
	explodeActions, err := actionsOfType(ctx, e.store, g.ID, models.ActionExplode)
	if err != nil {
		return nil, err
	}
	for _, a := range explodeActions {
		kamikaze := byID[a.PlayerID]
		if kamikaze == nil || !kamikaze.IsAlive {
			continue
		}
		kamikaze.Attributes.KamikazeUsed = true

		explosionDeaths := []string{}
		explosionSet := map[uuid.UUID]bool{}
		killLocal := func(p *models.Player) {
			if p == nil || !p.IsAlive || explosionSet[p.ID] {
				return
			}
			kill(p)
			explosionSet[p.ID] = true
			explosionDeaths = append(explosionDeaths, p.Nickname)
		}

		killLocal(kamikaze)

		target := byID[a.TargetID]
		if target != nil && target.IsAlive {
			switch {
			case target.Role == models.RoleProtettore:
				// Case A: target is the Protettore — the protector dies,
				// and everyone they protected dies with them.
				killLocal(target)
				for pid, protectorID := range protectorOf {
					if protectorID == target.ID {
						killLocal(byID[pid])
					}
				}
			case protected[target.ID]:
				// Case B: target is protected, not the Protettore — target
				// dies, and their protector dies too.
				killLocal(target)
				killLocal(byID[protectorOf[target.ID]])
			case target.Role == models.RoleMassone:
				// Case C: target is a Massone — both masons die; if either
				// was protected, that protector dies too.
				killLocal(target)
				other := findOtherMason(players, target.ID)
				if other != nil {
					killLocal(other)
				}
				if protected[target.ID] {
					killLocal(byID[protectorOf[target.ID]])
				}
				if other != nil && protected[other.ID] {
					killLocal(byID[protectorOf[other.ID]])
				}
			default:
				// Case D: ordinary target.
				killLocal(target)
			}
		}

		if err := event("kamikaze_explode", fmt.Sprintf("the Kamikaze explodes. Dead: %v", explosionDeaths)); err != nil {
			return nil, err
		}
	}

	// Step 5 (inspection) and Step 6 (Medium/Massoni messages) have no
	// resolution-time state change: inspection already returned at Intake
	// time, and night messages are computed by the View Projector.

	for _, p := range players {
		if err := e.store.UpdatePlayer(ctx, p); err != nil {
			return nil, fmt.Errorf("persist player %s: %w", p.ID, err)
		}
	}

	log.Printf("✓ NightResolver - session %s: night %d deaths: %v", g.ID, turn, deathOrder)
	return deathOrder, nil
}

func findOtherMason(players []*models.Player, exclude uuid.UUID) *models.Player {
	for _, p := range players {
		if p.Role == models.RoleMassone && p.ID != exclude {
			return p
		}
	}
	return nil
}

func actionsOfType(ctx context.Context, store Store, gameID string, actionType models.ActionType) ([]*models.Action, error) {
	all, err := store.ListActions(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var out []*models.Action
	for _, a := range all {
		if a.ActionType == actionType {
			out = append(out, a)
		}
	}
	return out, nil
}
