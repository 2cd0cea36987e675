package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is one of the five states a Game moves through.
type Phase string

const (
	PhaseLobby      Phase = "LOBBY"
	PhaseRoleReveal Phase = "ROLE_REVEAL"
	PhaseNight      Phase = "NIGHT"
	PhaseDay        Phase = "DAY"
	PhaseGameOver   Phase = "GAME_OVER"
)

// Role is a player's current or original assignment.
type Role string

const (
	RoleLupo        Role = "LUPO"
	RoleVeggente    Role = "VEGGENTE"
	RoleOracolo     Role = "ORACOLO"
	RoleMedium      Role = "MEDIUM"
	RoleProtettore  Role = "PROTETTORE"
	RoleMassone     Role = "MASSONE"
	RoleMitomane    Role = "MITOMANE"
	RoleVillico     Role = "VILLICO"
	RoleCriceto     Role = "CRICETO"
	RoleKamikaze    Role = "KAMIKAZE"
	RoleIndemoniato Role = "INDEMONIATO"
)

// Faction groups roles for "who sees whom" and win-detection purposes.
// WolfFaction and EvilFaction are deliberately distinct: Kamikaze, Oracolo
// and Indemoniato win with the wolves but do not see them at night, and
// Indemoniato additionally does not count toward wolf numerical power.
type Faction string

const (
	FactionWolf    Faction = "wolf"
	FactionEvil    Faction = "evil"
	FactionVillage Faction = "village"
	FactionNeutral Faction = "neutral"
)

// WolfFaction holds roles that recognize each other at night.
var WolfFaction = map[Role]bool{
	RoleLupo: true,
}

// EvilFaction holds roles whose win condition is tied to the wolves.
var EvilFaction = map[Role]bool{
	RoleLupo:        true,
	RoleKamikaze:    true,
	RoleOracolo:     true,
	RoleIndemoniato: true,
}

// VillageFaction holds roles that win with the village.
var VillageFaction = map[Role]bool{
	RoleVeggente:   true,
	RoleMedium:     true,
	RoleProtettore: true,
	RoleMassone:    true,
	RoleMitomane:   true,
	RoleVillico:    true,
}

// NeutralFaction holds roles with their own win condition.
var NeutralFaction = map[Role]bool{
	RoleCriceto: true,
}

// ActionType is the tagged union of every night action the engine
// understands, replacing a string-keyed dispatch.
type ActionType string

const (
	ActionKill        ActionType = "KILL"
	ActionInspect     ActionType = "INSPECT"
	ActionInspectRole ActionType = "INSPECT_ROLE"
	ActionProtect     ActionType = "PROTECT"
	ActionExplode     ActionType = "EXPLODE"
	ActionCopy        ActionType = "COPY"
)

// RoleActions is the per-role night-action whitelist consulted by Intake.
var RoleActions = map[Role][]ActionType{
	RoleLupo:       {ActionKill},
	RoleVeggente:   {ActionInspect},
	RoleOracolo:    {ActionInspectRole},
	RoleProtettore: {ActionProtect},
	RoleKamikaze:   {ActionKill, ActionExplode},
	RoleMitomane:   {ActionCopy},
}

// PlayerAttributes is the typed replacement for a stringly-typed per-player
// attribute map. Room for future flags lives here.
type PlayerAttributes struct {
	KamikazeUsed bool `json:"kamikaze_used"`
}

// User is a registered account. Never deleted; mutated by stats increments
// at game end.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	PasswordSalt string    `json:"-"`
	TotalGames   int       `json:"total_games"`
	TotalWins    int       `json:"total_wins"`
	WolfWins     int       `json:"wolf_wins"`
	VillageWins  int       `json:"village_wins"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is an opaque login token. The engine never inspects it; it is
// consumed only by the auth middleware.
type Session struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Game is one running (or finished) match.
type Game struct {
	ID                string       `json:"id"`
	State             Phase        `json:"state"`
	CreatorID         uuid.UUID    `json:"creator_id"`
	TargetPlayers     int          `json:"target_players"`
	TurnNumber        int          `json:"turn_number"`
	PhaseEndTime      time.Time    `json:"phase_end_time"`
	RolesInGame       map[Role]int `json:"roles_in_game"`
	Winners           string       `json:"winners"`
	WinnerDetail      string       `json:"winner_detail"`
	LastDayBurnedNick string       `json:"last_day_burned_nick"`
	LastDayBurnedRole Role         `json:"last_day_burned_role"`
	NightDeaths       []string     `json:"night_deaths"`
	DayDeaths         []string     `json:"day_deaths"`
	CreatedAt         time.Time    `json:"created_at"`
}

// Winner labels used in Game.Winners.
const (
	WinnerWolves  = "Lupi"
	WinnerVillage = "Villaggio"
	WinnerHamster = "Criceto Mannaro"
	WinnerNone    = ""
)

// Player is one seat at a Game.
type Player struct {
	ID           uuid.UUID        `json:"id"`
	GameID       string           `json:"game_id"`
	UserID       uuid.UUID        `json:"user_id"`
	Nickname     string           `json:"nickname"`
	Role         Role             `json:"role"`
	OriginalRole Role             `json:"original_role"`
	IsAlive      bool             `json:"is_alive"`
	Attributes   PlayerAttributes `json:"attributes"`
	SeatPosition int              `json:"seat_position"`
}

// Action is a single player's submitted night action. (game_id, player_id,
// action_type) is the uniqueness key.
type Action struct {
	ID         uuid.UUID  `json:"id"`
	GameID     string     `json:"game_id"`
	PlayerID   uuid.UUID  `json:"player_id"`
	ActionType ActionType `json:"action_type"`
	TargetID   uuid.UUID  `json:"target_id"`
}

// Vote is a single player's day-time lynch vote. (game_id, player_id) is
// the uniqueness key.
type Vote struct {
	ID       uuid.UUID `json:"id"`
	GameID   string    `json:"game_id"`
	PlayerID uuid.UUID `json:"player_id"`
	TargetID uuid.UUID `json:"target_id"`
}

// Guess is a purely informational prediction. (game_id, player_id,
// target_id) is the uniqueness key; never cleared during a game.
type Guess struct {
	ID          uuid.UUID `json:"id"`
	GameID      string    `json:"game_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	TargetID    uuid.UUID `json:"target_id"`
	GuessedRole Role      `json:"guessed_role"`
}

// Event is an append-only log entry consumed by the history view.
type Event struct {
	Turn   int       `json:"turn"`
	Phase  Phase     `json:"phase"`
	Type   string    `json:"type"`
	Detail string    `json:"detail"`
	Ts     time.Time `json:"ts"`
}

// Phase durations, per spec.
const (
	NightDuration      = 180 * time.Second
	DayDuration        = 180 * time.Second
	RoleRevealDuration = 120 * time.Second
)

// --- HTTP request/response DTOs ---

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=20"`
	Password string `json:"password" binding:"required,min=4,max=50"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type MeResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	CurrentGame string    `json:"current_game,omitempty"`
	Stats       UserStats `json:"stats"`
}

type UserStats struct {
	TotalGames  int `json:"total_games"`
	TotalWins   int `json:"total_wins"`
	WolfWins    int `json:"wolf_wins"`
	VillageWins int `json:"village_wins"`
}

type CreateGameRequest struct {
	TargetPlayers int `json:"target_players" binding:"required,min=6,max=30"`
}

type ActionRequest struct {
	TargetID   uuid.UUID  `json:"target_id"`
	ActionType ActionType `json:"action_type" binding:"required"`
}

type VoteRequest struct {
	TargetID uuid.UUID `json:"target_id" binding:"required"`
}

type GuessRequest struct {
	TargetID    uuid.UUID `json:"target_id" binding:"required"`
	GuessedRole Role      `json:"guessed_role" binding:"required"`
}

type HistoryEntry struct {
	GameID    string    `json:"game_id"`
	Winners   string    `json:"winners"`
	PlayerWon bool      `json:"player_won"`
	CreatedAt time.Time `json:"created_at"`
}

// GuessLeaderboardEntry is one row of the end-of-game guessing leaderboard:
// how many of each player's role guesses about other players turned out
// correct, alongside their own (original) role for context.
type GuessLeaderboardEntry struct {
	Nickname string `json:"nickname"`
	Role     Role   `json:"role"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
}
