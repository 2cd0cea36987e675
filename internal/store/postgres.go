// Package store provides the Postgres-backed implementation of game.Store,
// plus the user-account persistence the API layer needs alongside it.
package store

import (
	"context"
	"encoding/json"
	_ "embed"
	"errors"
	"fmt"

	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kazerdira/lupustabula/internal/game"
	"github.com/kazerdira/lupustabula/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// nullTime maps the zero models.Game.PhaseEndTime (LOBBY, or after
// GAME_OVER) to SQL NULL for the nullable phase_end_time column.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// PostgresStore implements game.Store on top of jackc/pgx, and additionally
// houses the user-account queries the API layer needs (register/login/me).
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates every table used by the store if it does not already
// exist. Safe to call on every process start.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return game.ErrNotFound
	}
	return err
}

// --- games ---

func (s *PostgresStore) CreateGame(ctx context.Context, g *models.Game) error {
	roles, err := json.Marshal(g.RolesInGame)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO games (id, state, creator_id, target_players, turn_number, phase_end_time,
			roles_in_game, winners, winner_detail, last_day_burned_nick, last_day_burned_role,
			night_deaths, day_deaths, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, g.ID, string(g.State), g.CreatorID, g.TargetPlayers, g.TurnNumber, nullTime(g.PhaseEndTime),
		roles, g.Winners, g.WinnerDetail, g.LastDayBurnedNick, string(g.LastDayBurnedRole),
		jsonStrings(g.NightDeaths), jsonStrings(g.DayDeaths), g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, state, creator_id, target_players, turn_number, phase_end_time,
			roles_in_game, winners, winner_detail, last_day_burned_nick, last_day_burned_role,
			night_deaths, day_deaths, created_at
		FROM games WHERE id = $1
	`, gameID)
	g, err := scanGame(row)
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

func (s *PostgresStore) UpdateGame(ctx context.Context, g *models.Game) error {
	roles, err := json.Marshal(g.RolesInGame)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE games SET state=$2, turn_number=$3, phase_end_time=$4, roles_in_game=$5,
			winners=$6, winner_detail=$7, last_day_burned_nick=$8, last_day_burned_role=$9,
			night_deaths=$10, day_deaths=$11
		WHERE id=$1
	`, g.ID, string(g.State), g.TurnNumber, nullTime(g.PhaseEndTime), roles,
		g.Winners, g.WinnerDetail, g.LastDayBurnedNick, string(g.LastDayBurnedRole),
		jsonStrings(g.NightDeaths), jsonStrings(g.DayDeaths))
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListOpenGames(ctx context.Context) ([]*models.Game, error) {
	return s.queryGames(ctx, `
		SELECT id, state, creator_id, target_players, turn_number, phase_end_time,
			roles_in_game, winners, winner_detail, last_day_burned_nick, last_day_burned_role,
			night_deaths, day_deaths, created_at
		FROM games WHERE state = $1 ORDER BY created_at DESC
	`, string(models.PhaseLobby))
}

func (s *PostgresStore) ListActiveGames(ctx context.Context) ([]*models.Game, error) {
	return s.queryGames(ctx, `
		SELECT id, state, creator_id, target_players, turn_number, phase_end_time,
			roles_in_game, winners, winner_detail, last_day_burned_nick, last_day_burned_role,
			night_deaths, day_deaths, created_at
		FROM games WHERE state NOT IN ($1, $2)
	`, string(models.PhaseLobby), string(models.PhaseGameOver))
}

func (s *PostgresStore) ListFinishedGamesForUser(ctx context.Context, userID uuid.UUID) ([]*models.Game, error) {
	return s.queryGames(ctx, `
		SELECT DISTINCT g.id, g.state, g.creator_id, g.target_players, g.turn_number, g.phase_end_time,
			g.roles_in_game, g.winners, g.winner_detail, g.last_day_burned_nick, g.last_day_burned_role,
			g.night_deaths, g.day_deaths, g.created_at
		FROM games g
		JOIN players p ON p.game_id = g.id
		WHERE p.user_id = $1 AND g.state = $2
		ORDER BY g.created_at DESC
	`, userID, string(models.PhaseGameOver))
}

func (s *PostgresStore) FindActiveGameForUser(ctx context.Context, userID uuid.UUID) (*models.Game, error) {
	games, err := s.queryGames(ctx, `
		SELECT g.id, g.state, g.creator_id, g.target_players, g.turn_number, g.phase_end_time,
			g.roles_in_game, g.winners, g.winner_detail, g.last_day_burned_nick, g.last_day_burned_role,
			g.night_deaths, g.day_deaths, g.created_at
		FROM games g
		JOIN players p ON p.game_id = g.id
		WHERE p.user_id = $1 AND g.state != $2
		LIMIT 1
	`, userID, string(models.PhaseGameOver))
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}
	return games[0], nil
}

func (s *PostgresStore) queryGames(ctx context.Context, sql string, args ...any) ([]*models.Game, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var out []*models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*models.Game, error) {
	var g models.Game
	var state, lastBurnedRole string
	var rolesRaw, nightRaw, dayRaw []byte
	var phaseEnd *time.Time
	if err := row.Scan(&g.ID, &state, &g.CreatorID, &g.TargetPlayers, &g.TurnNumber, &phaseEnd,
		&rolesRaw, &g.Winners, &g.WinnerDetail, &g.LastDayBurnedNick, &lastBurnedRole,
		&nightRaw, &dayRaw, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.State = models.Phase(state)
	g.LastDayBurnedRole = models.Role(lastBurnedRole)
	if phaseEnd != nil {
		g.PhaseEndTime = *phaseEnd
	}
	roles := map[models.Role]int{}
	if len(rolesRaw) > 0 {
		if err := json.Unmarshal(rolesRaw, &roles); err != nil {
			return nil, err
		}
	}
	g.RolesInGame = roles
	if len(nightRaw) > 0 {
		if err := json.Unmarshal(nightRaw, &g.NightDeaths); err != nil {
			return nil, err
		}
	}
	if len(dayRaw) > 0 {
		if err := json.Unmarshal(dayRaw, &g.DayDeaths); err != nil {
			return nil, err
		}
	}
	return &g, nil
}

// --- players ---

func (s *PostgresStore) CreatePlayer(ctx context.Context, p *models.Player) error {
	attrs, err := json.Marshal(p.Attributes)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO players (id, game_id, user_id, nickname, role, original_role, is_alive, attributes, seat_position)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.GameID, p.UserID, p.Nickname, string(p.Role), string(p.OriginalRole), p.IsAlive, attrs, p.SeatPosition)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlayer(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, game_id, user_id, nickname, role, original_role, is_alive, attributes, seat_position
		FROM players WHERE id = $1
	`, playerID)
	p, err := scanPlayer(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *PostgresStore) GetPlayerByUser(ctx context.Context, gameID string, userID uuid.UUID) (*models.Player, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, game_id, user_id, nickname, role, original_role, is_alive, attributes, seat_position
		FROM players WHERE game_id = $1 AND user_id = $2
	`, gameID, userID)
	p, err := scanPlayer(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *PostgresStore) ListPlayers(ctx context.Context, gameID string, aliveOnly bool) ([]*models.Player, error) {
	sql := `SELECT id, game_id, user_id, nickname, role, original_role, is_alive, attributes, seat_position
		FROM players WHERE game_id = $1`
	if aliveOnly {
		sql += " AND is_alive = true"
	}
	sql += " ORDER BY seat_position"
	rows, err := s.pool.Query(ctx, sql, gameID)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var out []*models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdatePlayer(ctx context.Context, p *models.Player) error {
	attrs, err := json.Marshal(p.Attributes)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE players SET role=$2, original_role=$3, is_alive=$4, attributes=$5
		WHERE id=$1
	`, p.ID, string(p.Role), string(p.OriginalRole), p.IsAlive, attrs)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	return nil
}

func scanPlayer(row rowScanner) (*models.Player, error) {
	var p models.Player
	var role, originalRole string
	var attrsRaw []byte
	if err := row.Scan(&p.ID, &p.GameID, &p.UserID, &p.Nickname, &role, &originalRole,
		&p.IsAlive, &attrsRaw, &p.SeatPosition); err != nil {
		return nil, err
	}
	p.Role = models.Role(role)
	p.OriginalRole = models.Role(originalRole)
	if len(attrsRaw) > 0 {
		if err := json.Unmarshal(attrsRaw, &p.Attributes); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// --- actions ---

func (s *PostgresStore) UpsertAction(ctx context.Context, a *models.Action) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO actions (id, game_id, player_id, action_type, target_id)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (game_id, player_id, action_type) DO UPDATE SET target_id = EXCLUDED.target_id
	`, a.ID, a.GameID, a.PlayerID, string(a.ActionType), a.TargetID)
	if err != nil {
		return fmt.Errorf("upsert action: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveAction(ctx context.Context, gameID string, playerID uuid.UUID, actionType models.ActionType) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM actions WHERE game_id=$1 AND player_id=$2 AND action_type=$3
	`, gameID, playerID, string(actionType))
	return err
}

func (s *PostgresStore) GetPlayerAction(ctx context.Context, gameID string, playerID uuid.UUID, actionType models.ActionType) (*models.Action, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, game_id, player_id, action_type, target_id
		FROM actions WHERE game_id=$1 AND player_id=$2 AND action_type=$3
	`, gameID, playerID, string(actionType))
	a, err := scanAction(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *PostgresStore) ListActions(ctx context.Context, gameID string) ([]*models.Action, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, game_id, player_id, action_type, target_id FROM actions WHERE game_id=$1
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()
	var out []*models.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ClearActions(ctx context.Context, gameID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM actions WHERE game_id=$1`, gameID)
	return err
}

func scanAction(row rowScanner) (*models.Action, error) {
	var a models.Action
	var actionType string
	if err := row.Scan(&a.ID, &a.GameID, &a.PlayerID, &actionType, &a.TargetID); err != nil {
		return nil, err
	}
	a.ActionType = models.ActionType(actionType)
	return &a, nil
}

// --- votes ---

func (s *PostgresStore) UpsertVote(ctx context.Context, v *models.Vote) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO votes (id, game_id, player_id, target_id)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (game_id, player_id) DO UPDATE SET target_id = EXCLUDED.target_id
	`, v.ID, v.GameID, v.PlayerID, v.TargetID)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

// ListVotes returns votes ordered by seq — the order each voter first cast
// theirs — so a day-tie's "first" target is the tied target that received
// the earliest of these votes, matching the received-order tally walk this
// is ported from.
func (s *PostgresStore) ListVotes(ctx context.Context, gameID string) ([]*models.Vote, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, game_id, player_id, target_id FROM votes WHERE game_id=$1 ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()
	var out []*models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.GameID, &v.PlayerID, &v.TargetID); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ClearVotes(ctx context.Context, gameID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM votes WHERE game_id=$1`, gameID)
	return err
}

// --- guesses ---

func (s *PostgresStore) UpsertGuess(ctx context.Context, g *models.Guess) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guesses (id, game_id, player_id, target_id, guessed_role)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (game_id, player_id, target_id) DO UPDATE SET guessed_role = EXCLUDED.guessed_role
	`, g.ID, g.GameID, g.PlayerID, g.TargetID, string(g.GuessedRole))
	if err != nil {
		return fmt.Errorf("upsert guess: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListGuesses(ctx context.Context, gameID string) ([]*models.Guess, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, game_id, player_id, target_id, guessed_role FROM guesses WHERE game_id=$1
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query guesses: %w", err)
	}
	defer rows.Close()
	var out []*models.Guess
	for rows.Next() {
		var g models.Guess
		var role string
		if err := rows.Scan(&g.ID, &g.GameID, &g.PlayerID, &g.TargetID, &role); err != nil {
			return nil, err
		}
		g.GuessedRole = models.Role(role)
		out = append(out, &g)
	}
	return out, rows.Err()
}

// --- events ---

func (s *PostgresStore) AppendEvent(ctx context.Context, gameID string, e models.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (game_id, turn, phase, type, detail) VALUES ($1,$2,$3,$4,$5)
	`, gameID, e.Turn, string(e.Phase), e.Type, e.Detail)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, gameID string) ([]models.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT turn, phase, type, detail, ts FROM events WHERE game_id=$1 ORDER BY id
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	var out []models.Event
	for rows.Next() {
		var e models.Event
		var phase string
		if err := rows.Scan(&e.Turn, &phase, &e.Type, &e.Detail, &e.Ts); err != nil {
			return nil, err
		}
		e.Phase = models.Phase(phase)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- stats & reset ---

func (s *PostgresStore) IncrementUserStats(ctx context.Context, userID uuid.UUID, won, wolfWin, villageWin bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET total_games = total_games + 1,
			total_wins = total_wins + CASE WHEN $2 THEN 1 ELSE 0 END,
			wolf_wins = wolf_wins + CASE WHEN $3 THEN 1 ELSE 0 END,
			village_wins = village_wins + CASE WHEN $4 THEN 1 ELSE 0 END
		WHERE id = $1
	`, userID, won, wolfWin, villageWin)
	if err != nil {
		return fmt.Errorf("increment user stats: %w", err)
	}
	return nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE events, guesses, votes, actions, players, games, users CASCADE`)
	if err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return nil
}

// --- users (consumed directly by internal/api, not part of game.Store) ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, password_salt, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, u.ID, u.Username, u.PasswordHash, u.PasswordSalt, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, password_salt, total_games, total_wins, wolf_wins, village_wins, created_at
		FROM users WHERE username = $1
	`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, password_salt, total_games, total_wins, wolf_wins, village_wins, created_at
		FROM users WHERE id = $1
	`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.PasswordSalt,
		&u.TotalGames, &u.TotalWins, &u.WolfWins, &u.VillageWins, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func jsonStrings(ss []string) []byte {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return b
}
