package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kazerdira/lupustabula/internal/models"
)

// memStore is an in-memory Store used only by this package's tests. It
// mirrors the concurrency-free semantics the real store provides once
// callers already hold the per-game lock.
type memStore struct {
	mu       sync.Mutex
	games    map[string]*models.Game
	players  map[uuid.UUID]*models.Player
	actions  map[string]*models.Action // key: game|player|type
	votes    map[string]*models.Vote   // key: game|player
	voteSeq  map[string]int            // key: game|player, first-cast order
	nextSeq  int
	guesses  map[string]*models.Guess // key: game|player|target
	events   map[string][]models.Event
	userWins map[uuid.UUID]*statBucket
}

type statBucket struct{ games, wins, wolfWins, villageWins int }

func newMemStore() *memStore {
	return &memStore{
		games:    map[string]*models.Game{},
		players:  map[uuid.UUID]*models.Player{},
		actions:  map[string]*models.Action{},
		votes:    map[string]*models.Vote{},
		voteSeq:  map[string]int{},
		guesses:  map[string]*models.Guess{},
		events:   map[string][]models.Event{},
		userWins: map[uuid.UUID]*statBucket{},
	}
}

func actionKey(gameID string, playerID uuid.UUID, t models.ActionType) string {
	return gameID + "|" + playerID.String() + "|" + string(t)
}
func voteKey(gameID string, playerID uuid.UUID) string {
	return gameID + "|" + playerID.String()
}
func guessKey(gameID string, playerID, targetID uuid.UUID) string {
	return gameID + "|" + playerID.String() + "|" + targetID.String()
}

func (m *memStore) CreateGame(ctx context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *memStore) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memStore) UpdateGame(ctx context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; !ok {
		return ErrNotFound
	}
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *memStore) CreatePlayer(ctx context.Context, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.players[p.ID] = &cp
	return nil
}

func (m *memStore) GetPlayer(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetPlayerByUser(ctx context.Context, gameID string, userID uuid.UUID) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.GameID == gameID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListPlayers(ctx context.Context, gameID string, aliveOnly bool) ([]*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Player
	for _, p := range m.players {
		if p.GameID != gameID {
			continue
		}
		if aliveOnly && !p.IsAlive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) UpdatePlayer(ctx context.Context, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.players[p.ID] = &cp
	return nil
}

func (m *memStore) UpsertAction(ctx context.Context, a *models.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.actions[actionKey(a.GameID, a.PlayerID, a.ActionType)] = &cp
	return nil
}

func (m *memStore) RemoveAction(ctx context.Context, gameID string, playerID uuid.UUID, actionType models.ActionType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.actions, actionKey(gameID, playerID, actionType))
	return nil
}

func (m *memStore) GetPlayerAction(ctx context.Context, gameID string, playerID uuid.UUID, actionType models.ActionType) (*models.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[actionKey(gameID, playerID, actionType)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListActions(ctx context.Context, gameID string) ([]*models.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Action
	for _, a := range m.actions {
		if a.GameID == gameID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ClearActions(ctx context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, a := range m.actions {
		if a.GameID == gameID {
			delete(m.actions, k)
		}
	}
	return nil
}

func (m *memStore) UpsertVote(ctx context.Context, v *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := voteKey(v.GameID, v.PlayerID)
	cp := *v
	m.votes[key] = &cp
	if _, ok := m.voteSeq[key]; !ok {
		m.voteSeq[key] = m.nextSeq
		m.nextSeq++
	}
	return nil
}

// ListVotes returns votes in the order each voter first cast theirs, the
// same "received order" original_source's tally walk relies on.
func (m *memStore) ListVotes(ctx context.Context, gameID string) ([]*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Vote
	for _, v := range m.votes {
		if v.GameID == gameID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return m.voteSeq[voteKey(out[i].GameID, out[i].PlayerID)] < m.voteSeq[voteKey(out[j].GameID, out[j].PlayerID)]
	})
	return out, nil
}

func (m *memStore) ClearVotes(ctx context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.votes {
		if v.GameID == gameID {
			delete(m.votes, k)
		}
	}
	return nil
}

func (m *memStore) UpsertGuess(ctx context.Context, g *models.Guess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.guesses[guessKey(g.GameID, g.PlayerID, g.TargetID)] = &cp
	return nil
}

func (m *memStore) ListGuesses(ctx context.Context, gameID string) ([]*models.Guess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Guess
	for _, g := range m.guesses {
		if g.GameID == gameID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) AppendEvent(ctx context.Context, gameID string, e models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[gameID] = append(m.events[gameID], e)
	return nil
}

func (m *memStore) ListEvents(ctx context.Context, gameID string) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Event, len(m.events[gameID]))
	copy(out, m.events[gameID])
	return out, nil
}

func (m *memStore) ListOpenGames(ctx context.Context) ([]*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Game
	for _, g := range m.games {
		if g.State == models.PhaseLobby {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveGames(ctx context.Context) ([]*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Game
	for _, g := range m.games {
		if g.State != models.PhaseLobby && g.State != models.PhaseGameOver {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ListFinishedGamesForUser(ctx context.Context, userID uuid.UUID) ([]*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Game
	for _, g := range m.games {
		if g.State != models.PhaseGameOver {
			continue
		}
		for _, p := range m.players {
			if p.GameID == g.ID && p.UserID == userID {
				cp := *g
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) FindActiveGameForUser(ctx context.Context, userID uuid.UUID) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.UserID != userID {
			continue
		}
		if g, ok := m.games[p.GameID]; ok && g.State != models.PhaseGameOver {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) IncrementUserStats(ctx context.Context, userID uuid.UUID, won, wolfWin, villageWin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.userWins[userID]
	if !ok {
		b = &statBucket{}
		m.userWins[userID] = b
	}
	b.games++
	if won {
		b.wins++
	}
	if wolfWin {
		b.wolfWins++
	}
	if villageWin {
		b.villageWins++
	}
	return nil
}

func (m *memStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m = *newMemStore()
	return nil
}

// fakeClock lets tests control "now" directly.
type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }
