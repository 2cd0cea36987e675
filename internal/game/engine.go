package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kazerdira/lupustabula/internal/apperr"
	"github.com/kazerdira/lupustabula/internal/models"
)

var timeZero time.Time

const gameCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const gameCodeLength = 5

// Engine is the facade over every game-engine component (§4.A-I): it holds
// the Store, the injected Clock, and the per-game lock set, and exposes one
// method per external operation.
type Engine struct {
	store Store
	clock Clock
	locks *gameLocks
}

func NewEngine(store Store, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{store: store, clock: clock, locks: newGameLocks()}
}

// CreateGame creates a new LOBBY game and joins the creator as its first
// player (spec §6 POST /create_game).
func (e *Engine) CreateGame(ctx context.Context, creatorID uuid.UUID, creatorNickname string, targetPlayers int) (*models.Game, error) {
	if targetPlayers < 6 || targetPlayers > 30 {
		return nil, apperr.Validation("target_players must be between 6 and 30")
	}
	if existing, err := e.store.FindActiveGameForUser(ctx, creatorID); err == nil && existing != nil {
		return nil, apperr.State(fmt.Sprintf("already in game %s", existing.ID))
	}

	code, err := e.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	g := &models.Game{
		ID:            code,
		State:         models.PhaseLobby,
		CreatorID:     creatorID,
		TargetPlayers: targetPlayers,
		CreatedAt:     e.clock.Now(),
	}
	if err := e.store.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	if err := e.store.CreatePlayer(ctx, &models.Player{
		ID:       uuid.New(),
		GameID:   code,
		UserID:   creatorID,
		Nickname: creatorNickname,
		IsAlive:  true,
	}); err != nil {
		return nil, fmt.Errorf("seat creator: %w", err)
	}
	return g, nil
}

func (e *Engine) generateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < 20; i++ {
		b := make([]byte, gameCodeLength)
		for j := range b {
			b[j] = gameCodeAlphabet[rand.Intn(len(gameCodeAlphabet))]
		}
		code := string(b)
		if _, err := e.store.GetGame(ctx, code); err == ErrNotFound {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique game code")
}

// JoinGame adds a player to a LOBBY game by (case-insensitive) code, and
// auto-starts the game when the lobby reaches target_players.
func (e *Engine) JoinGame(ctx context.Context, code string, userID uuid.UUID, nickname string) (*models.Game, error) {
	code = strings.ToUpper(code)
	unlock := e.locks.Lock(code)
	defer unlock()

	g, err := e.store.GetGame(ctx, code)
	if err != nil {
		return nil, translateNotFound(err, "game")
	}
	if g.State != models.PhaseLobby {
		return nil, apperr.State("game already started")
	}

	if existing, err := e.store.FindActiveGameForUser(ctx, userID); err == nil && existing != nil && existing.ID != code {
		return nil, apperr.State(fmt.Sprintf("already in game %s", existing.ID))
	}

	players, err := e.store.ListPlayers(ctx, code, false)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	for _, p := range players {
		if p.UserID == userID {
			return g, nil
		}
	}
	if len(players) >= g.TargetPlayers {
		return nil, apperr.State("lobby is full")
	}
	for _, p := range players {
		if strings.EqualFold(p.Nickname, nickname) {
			return nil, apperr.State("nickname already used in this game")
		}
	}

	if err := e.store.CreatePlayer(ctx, &models.Player{
		ID:           uuid.New(),
		GameID:       code,
		UserID:       userID,
		Nickname:     nickname,
		IsAlive:      true,
		SeatPosition: len(players),
	}); err != nil {
		return nil, fmt.Errorf("seat player: %w", err)
	}

	if len(players)+1 >= g.TargetPlayers {
		if err := e.startGame(ctx, g, e.clock.Now()); err != nil {
			return nil, fmt.Errorf("start game: %w", err)
		}
	}

	return e.store.GetGame(ctx, code)
}

// MaybeAdvance runs the Phase Sequencer if the current phase has expired.
// Exported for the optional sweeper (§4.N); the View Projector and the
// action, vote and guess intake methods call the unexported, already-locked
// variant on every read.
func (e *Engine) MaybeAdvance(ctx context.Context, code string) error {
	unlock := e.locks.Lock(code)
	defer unlock()

	g, err := e.store.GetGame(ctx, code)
	if err != nil {
		return translateNotFound(err, "game")
	}
	_, err = e.maybeAdvanceLocked(ctx, g)
	return err
}

// ListOpenGames returns open lobbies (state == LOBBY).
func (e *Engine) ListOpenGames(ctx context.Context) ([]*models.Game, error) {
	return e.store.ListOpenGames(ctx)
}

// FindActiveGame returns the non-finished game userID currently sits in, if
// any (used by GET /me to report current_game).
func (e *Engine) FindActiveGame(ctx context.Context, userID uuid.UUID) (*models.Game, error) {
	return e.store.FindActiveGameForUser(ctx, userID)
}

// History returns finished games that included userID, each flagged with
// whether that user won (spec §6 GET /history).
func (e *Engine) History(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	games, err := e.store.ListFinishedGamesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list finished games: %w", err)
	}
	var entries []models.HistoryEntry
	for _, g := range games {
		player, err := e.store.GetPlayerByUser(ctx, g.ID, userID)
		won := err == nil && player != nil && perPlayerWon(player, g.Winners)
		entries = append(entries, models.HistoryEntry{
			GameID:    g.ID,
			Winners:   g.Winners,
			PlayerWon: won,
			CreatedAt: g.CreatedAt,
		})
	}
	return entries, nil
}

// HistoryDetail returns the full projection of a finished game by code,
// regardless of who is asking (spec §6 GET /history/{code}).
func (e *Engine) HistoryDetail(ctx context.Context, code string) (*GameView, error) {
	code = strings.ToUpper(code)
	g, err := e.store.GetGame(ctx, code)
	if err != nil {
		return nil, translateNotFound(err, "game")
	}
	if g.State != models.PhaseGameOver {
		return nil, apperr.State("game has not finished")
	}
	players, err := e.store.ListPlayers(ctx, code, false)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	view := &GameView{GameID: g.ID, State: g.State, TurnNumber: g.TurnNumber, TargetPlayers: g.TargetPlayers}
	if err := e.projectGameOver(ctx, g, players, view); err != nil {
		return nil, err
	}
	return view, nil
}

// Reset wipes the entire store. Debug-only; handlers must gate this on a
// non-production environment before calling it.
func (e *Engine) Reset(ctx context.Context) error {
	return e.store.Reset(ctx)
}
