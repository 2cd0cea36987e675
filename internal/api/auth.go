package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kazerdira/lupustabula/internal/auth"
	"github.com/kazerdira/lupustabula/internal/models"
)

const userIDContextKey = "user_id"

// AuthRequired resolves the session cookie to a user id and stores it in
// the gin context; it rejects the request with 401 when absent or invalid.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(h.cfg.Session.CookieName)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			c.Abort()
			return
		}
		userID, err := h.sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			c.Abort()
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(userIDContextKey)
	if !exists {
		return uuid.UUID{}, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Session.CookieName, token, int(h.cfg.Session.TTL.Seconds()), "/", "", false, true)
}

// Register creates a user and an immediate session (spec §6 POST /register).
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if existing, _ := h.store.GetUserByUsername(ctx, req.Username); existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
		return
	}

	hash, salt, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("❌ Register - hash error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    time.Now(),
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		log.Printf("❌ Register - create user error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, err := h.sessions.Create(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	h.setSessionCookie(c, token)
	log.Printf("✓ Register - user %s created", user.Username)
	c.JSON(http.StatusCreated, h.meResponse(ctx, user))
}

// Login authenticates a user and starts a session (spec §6 POST /login).
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByUsername(ctx, req.Username)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if !auth.VerifyPassword(req.Password, user.PasswordHash, user.PasswordSalt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	token, err := h.sessions.Create(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	h.setSessionCookie(c, token)
	log.Printf("✓ Login - user %s authenticated", user.Username)
	c.JSON(http.StatusOK, h.meResponse(ctx, user))
}

// Logout drops the session (spec §6 POST /logout).
func (h *Handler) Logout(c *gin.Context) {
	token, err := c.Cookie(h.cfg.Session.CookieName)
	if err == nil && token != "" {
		_ = h.sessions.Delete(c.Request.Context(), token)
	}
	c.SetCookie(h.cfg.Session.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile and stats (spec §6 GET /me).
func (h *Handler) Me(c *gin.Context) {
	userID, _ := currentUserID(c)
	ctx := c.Request.Context()
	user, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, h.meResponse(ctx, user))
}

func (h *Handler) meResponse(ctx context.Context, user *models.User) models.MeResponse {
	resp := models.MeResponse{
		ID:       user.ID,
		Username: user.Username,
		Stats: models.UserStats{
			TotalGames:  user.TotalGames,
			TotalWins:   user.TotalWins,
			WolfWins:    user.WolfWins,
			VillageWins: user.VillageWins,
		},
	}
	if current, err := h.engine.FindActiveGame(ctx, user.ID); err == nil && current != nil {
		resp.CurrentGame = current.ID
	}
	return resp
}
