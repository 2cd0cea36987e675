package game

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kazerdira/lupustabula/internal/models"
)

// ErrNotFound is returned by Store methods when the requested entity does
// not exist. It is the only error kind the store surfaces to the core;
// everything else is a genuine transport/infra failure.
var ErrNotFound = errors.New("not found")

// Store is the abstract persistence capability the engine depends on:
// CRUD over games and players, upsert/remove for actions/votes/guesses,
// an append-only event log, and the handful of list queries the lobby and
// history views need. Concrete implementations live outside this package
// (see internal/store).
type Store interface {
	CreateGame(ctx context.Context, g *models.Game) error
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
	UpdateGame(ctx context.Context, g *models.Game) error

	CreatePlayer(ctx context.Context, p *models.Player) error
	GetPlayer(ctx context.Context, playerID uuid.UUID) (*models.Player, error)
	GetPlayerByUser(ctx context.Context, gameID string, userID uuid.UUID) (*models.Player, error)
	ListPlayers(ctx context.Context, gameID string, aliveOnly bool) ([]*models.Player, error)
	UpdatePlayer(ctx context.Context, p *models.Player) error

	UpsertAction(ctx context.Context, a *models.Action) error
	RemoveAction(ctx context.Context, gameID string, playerID uuid.UUID, actionType models.ActionType) error
	GetPlayerAction(ctx context.Context, gameID string, playerID uuid.UUID, actionType models.ActionType) (*models.Action, error)
	ListActions(ctx context.Context, gameID string) ([]*models.Action, error)
	ClearActions(ctx context.Context, gameID string) error

	UpsertVote(ctx context.Context, v *models.Vote) error
	ListVotes(ctx context.Context, gameID string) ([]*models.Vote, error)
	ClearVotes(ctx context.Context, gameID string) error

	UpsertGuess(ctx context.Context, g *models.Guess) error
	ListGuesses(ctx context.Context, gameID string) ([]*models.Guess, error)

	AppendEvent(ctx context.Context, gameID string, e models.Event) error
	ListEvents(ctx context.Context, gameID string) ([]models.Event, error)

	ListOpenGames(ctx context.Context) ([]*models.Game, error)
	ListActiveGames(ctx context.Context) ([]*models.Game, error)
	ListFinishedGamesForUser(ctx context.Context, userID uuid.UUID) ([]*models.Game, error)
	FindActiveGameForUser(ctx context.Context, userID uuid.UUID) (*models.Game, error)

	// IncrementUserStats applies the end-of-game stat bumps (§4.G) to a
	// single user: games always +1, wins/wolfWins/villageWins as computed
	// by the Win Detector.
	IncrementUserStats(ctx context.Context, userID uuid.UUID, won, wolfWin, villageWin bool) error

	// Reset wipes every game, player, action, vote, guess and event. Backs
	// the debug-only /reset endpoint; callers gate it on environment.
	Reset(ctx context.Context) error
}
