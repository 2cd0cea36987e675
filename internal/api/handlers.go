package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kazerdira/lupustabula/internal/apperr"
	"github.com/kazerdira/lupustabula/internal/config"
	"github.com/kazerdira/lupustabula/internal/game"
	"github.com/kazerdira/lupustabula/internal/models"
	"github.com/kazerdira/lupustabula/internal/session"
	"github.com/kazerdira/lupustabula/internal/store"
)

// Handler wires the HTTP surface (spec §6) to the game engine, the user
// store, and the session store.
type Handler struct {
	store    *store.PostgresStore
	engine   *game.Engine
	sessions *session.Store
	cfg      *config.Config
}

func NewHandler(store *store.PostgresStore, engine *game.Engine, sessions *session.Store, cfg *config.Config) *Handler {
	return &Handler{store: store, engine: engine, sessions: sessions, cfg: cfg}
}

// writeError maps an apperr.Error to its HTTP status; anything else is a 500.
func writeError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.Status(), gin.H{"error": appErr.Message})
		return
	}
	log.Printf("❌ unhandled error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// CreateGame handles POST /create_game.
func (h *Handler) CreateGame(c *gin.Context) {
	userID, _ := currentUserID(c)
	var req models.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	g, err := h.engine.CreateGame(c.Request.Context(), userID, user.Username, req.TargetPlayers)
	if err != nil {
		writeError(c, err)
		return
	}
	log.Printf("✓ CreateGame - %s created game %s", user.Username, g.ID)
	c.JSON(http.StatusCreated, g)
}

// JoinGame handles POST /join_game/:code.
func (h *Handler) JoinGame(c *gin.Context) {
	userID, _ := currentUserID(c)
	code := c.Param("code")

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	g, err := h.engine.JoinGame(c.Request.Context(), code, userID, user.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	log.Printf("✓ JoinGame - %s joined %s", user.Username, code)
	c.JSON(http.StatusOK, g)
}

// ListGames handles GET /games.
func (h *Handler) ListGames(c *gin.Context) {
	games, err := h.engine.ListOpenGames(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

// GetGameState handles GET /game_state/:code.
func (h *Handler) GetGameState(c *gin.Context) {
	userID, _ := currentUserID(c)
	code := c.Param("code")

	view, err := h.engine.GetState(c.Request.Context(), code, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAction handles POST /action/:code.
func (h *Handler) SubmitAction(c *gin.Context) {
	userID, _ := currentUserID(c)
	code := c.Param("code")

	var req models.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.SubmitAction(c.Request.Context(), code, userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SubmitVote handles POST /vote/:code.
func (h *Handler) SubmitVote(c *gin.Context) {
	userID, _ := currentUserID(c)
	code := c.Param("code")

	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.SubmitVote(c.Request.Context(), code, userID, req.TargetID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vote recorded"})
}

// SubmitGuess handles POST /guess/:code.
func (h *Handler) SubmitGuess(c *gin.Context) {
	userID, _ := currentUserID(c)
	code := c.Param("code")

	var req models.GuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.SubmitGuess(c.Request.Context(), code, userID, req.TargetID, req.GuessedRole); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "guess recorded"})
}

// GetHistory handles GET /history.
func (h *Handler) GetHistory(c *gin.Context) {
	userID, _ := currentUserID(c)
	entries, err := h.engine.History(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetHistoryDetail handles GET /history/:code.
func (h *Handler) GetHistoryDetail(c *gin.Context) {
	code := c.Param("code")
	view, err := h.engine.HistoryDetail(c.Request.Context(), code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Reset handles POST /reset. Debug-only: refused when the environment is
// "production".
func (h *Handler) Reset(c *gin.Context) {
	if h.cfg.Server.Environment == "production" {
		c.JSON(http.StatusForbidden, gin.H{"error": "reset is disabled in production"})
		return
	}
	if err := h.engine.Reset(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	log.Printf("⚠️  Reset - store wiped")
	c.JSON(http.StatusOK, gin.H{"message": "store reset"})
}
