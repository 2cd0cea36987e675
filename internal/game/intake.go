package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kazerdira/lupustabula/internal/apperr"
	"github.com/kazerdira/lupustabula/internal/models"
)

// ActionResult is the immediate feedback returned to the submitter.
// Inspection-type actions (§4.D rule 8) carry a Message; everything else
// returns an empty one.
type ActionResult struct {
	Message string
}

// SubmitAction validates and upserts a single player's night action
// against the Role Catalog whitelist and target legality (spec §4.D).
func (e *Engine) SubmitAction(ctx context.Context, code string, userID uuid.UUID, req models.ActionRequest) (*ActionResult, error) {
	unlock := e.locks.Lock(code)
	defer unlock()

	g, player, err := e.resolvePlayer(ctx, code, userID)
	if err != nil {
		return nil, err
	}
	if _, err := e.maybeAdvanceLocked(ctx, g); err != nil {
		return nil, err
	}
	g, err = e.store.GetGame(ctx, code)
	if err != nil {
		return nil, translateNotFound(err, "game")
	}

	if g.State != models.PhaseNight {
		return nil, apperr.State("not night")
	}
	if !player.IsAlive {
		return nil, apperr.State("dead players cannot act")
	}

	if !HasNightAction(player.Role, req.ActionType) {
		return nil, apperr.Validation(fmt.Sprintf("action %s not permitted for role %s", req.ActionType, player.Role))
	}

	if req.ActionType == models.ActionCopy && g.TurnNumber != 2 {
		return nil, apperr.Validation("mitomane may only copy on turn 2")
	}
	if req.ActionType == models.ActionExplode && player.Attributes.KamikazeUsed {
		return nil, apperr.Validation("kamikaze has already exploded")
	}

	target, err := e.store.GetPlayer(ctx, req.TargetID)
	if err != nil || target.GameID != code {
		return nil, apperr.Validation("invalid target")
	}
	if !target.IsAlive {
		return nil, apperr.Validation("target is dead")
	}
	if req.ActionType == models.ActionProtect && req.TargetID == player.ID {
		return nil, apperr.Validation("protettore cannot protect self")
	}
	if req.ActionType == models.ActionKill && req.TargetID == player.ID {
		return nil, apperr.Validation("cannot target self")
	}

	// Kamikaze mode-switch rule: EXPLODE drops any prior KILL, and KILL
	// drops any prior EXPLODE. (The source this is ported from muddles
	// this through a dead conditional that short-circuits to None before
	// the real removal call; the rule itself is exactly this swap.)
	if player.Role == models.RoleKamikaze {
		if req.ActionType == models.ActionExplode {
			_ = e.store.RemoveAction(ctx, code, player.ID, models.ActionKill)
		} else if req.ActionType == models.ActionKill {
			_ = e.store.RemoveAction(ctx, code, player.ID, models.ActionExplode)
		}
	}

	if err := e.store.UpsertAction(ctx, &models.Action{
		ID:         uuid.New(),
		GameID:     code,
		PlayerID:   player.ID,
		ActionType: req.ActionType,
		TargetID:   req.TargetID,
	}); err != nil {
		return nil, fmt.Errorf("upsert action: %w", err)
	}

	switch req.ActionType {
	case models.ActionInspect:
		return &ActionResult{Message: inspectMessage(target.Role)}, nil
	case models.ActionInspectRole:
		return &ActionResult{Message: fmt.Sprintf("%s is %s", target.Nickname, target.Role)}, nil
	default:
		return &ActionResult{}, nil
	}
}

// inspectMessage implements the Veggente's is-wolf/not-wolf rule: Criceto
// is wolf-immune to inspection even though it is not itself in WolfFaction.
func inspectMessage(targetRole models.Role) string {
	if models.WolfFaction[targetRole] && targetRole != models.RoleCriceto {
		return "is a Wolf"
	}
	return "is NOT a Wolf"
}

// SubmitVote validates and upserts a day-time lynch vote (spec §4.D).
func (e *Engine) SubmitVote(ctx context.Context, code string, userID uuid.UUID, targetID uuid.UUID) error {
	unlock := e.locks.Lock(code)
	defer unlock()

	g, player, err := e.resolvePlayer(ctx, code, userID)
	if err != nil {
		return err
	}
	if _, err := e.maybeAdvanceLocked(ctx, g); err != nil {
		return err
	}
	g, err = e.store.GetGame(ctx, code)
	if err != nil {
		return translateNotFound(err, "game")
	}

	if g.State != models.PhaseDay {
		return apperr.State("not day")
	}
	if !player.IsAlive {
		return apperr.State("dead players cannot vote")
	}
	if targetID == player.ID {
		return apperr.Validation("cannot vote for self")
	}
	target, err := e.store.GetPlayer(ctx, targetID)
	if err != nil || target.GameID != code || !target.IsAlive {
		return apperr.Validation("invalid target")
	}

	return e.store.UpsertVote(ctx, &models.Vote{
		ID:       uuid.New(),
		GameID:   code,
		PlayerID: player.ID,
		TargetID: targetID,
	})
}

// SubmitGuess validates and upserts a purely informational guess (§4.D).
// Accepted during NIGHT or DAY; never affects resolution.
func (e *Engine) SubmitGuess(ctx context.Context, code string, userID uuid.UUID, targetID uuid.UUID, guessedRole models.Role) error {
	unlock := e.locks.Lock(code)
	defer unlock()

	g, player, err := e.resolvePlayer(ctx, code, userID)
	if err != nil {
		return err
	}
	if _, err := e.maybeAdvanceLocked(ctx, g); err != nil {
		return err
	}
	g, err = e.store.GetGame(ctx, code)
	if err != nil {
		return translateNotFound(err, "game")
	}

	if g.State != models.PhaseNight && g.State != models.PhaseDay {
		return apperr.State("guesses only accepted during night or day")
	}
	if !player.IsAlive {
		return apperr.State("dead players cannot guess")
	}
	if player.Role != models.RoleVillico && player.Role != models.RoleIndemoniato && player.Role != models.RoleMassone {
		return apperr.State("role cannot submit guesses")
	}
	target, err := e.store.GetPlayer(ctx, targetID)
	if err != nil || target.GameID != code {
		return apperr.Validation("invalid target")
	}

	return e.store.UpsertGuess(ctx, &models.Guess{
		ID:          uuid.New(),
		GameID:      code,
		PlayerID:    player.ID,
		TargetID:    targetID,
		GuessedRole: guessedRole,
	})
}

// resolvePlayer resolves the (user, game) pair to a player record.
func (e *Engine) resolvePlayer(ctx context.Context, code string, userID uuid.UUID) (*models.Game, *models.Player, error) {
	g, err := e.store.GetGame(ctx, code)
	if err != nil {
		return nil, nil, translateNotFound(err, "game")
	}
	player, err := e.store.GetPlayerByUser(ctx, code, userID)
	if err != nil {
		return nil, nil, apperr.Ownership("not in this game")
	}
	return g, player, nil
}

func translateNotFound(err error, what string) error {
	if err == ErrNotFound {
		return apperr.NotFound(what + " not found")
	}
	return err
}
