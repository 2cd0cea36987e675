package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kazerdira/lupustabula/internal/api"
	"github.com/kazerdira/lupustabula/internal/config"
	"github.com/kazerdira/lupustabula/internal/database"
	"github.com/kazerdira/lupustabula/internal/game"
	"github.com/kazerdira/lupustabula/internal/session"
	"github.com/kazerdira/lupustabula/internal/store"
)

func main() {
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Connected to database")

	pgStore := store.NewPostgresStore(db.PG)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pgStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	log.Println("✓ Schema ensured")

	sessions := session.NewStore(db.Redis, cfg.Session.TTL)
	gameEngine := game.NewEngine(pgStore, game.SystemClock{})

	sweeper := game.NewSweeper(gameEngine, 10*time.Second)
	sweeper.Start()
	log.Println("✓ Phase sweeper started")

	handler := api.NewHandler(pgStore, gameEngine, sessions, cfg)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	public := router.Group("/")
	{
		public.POST("/register", handler.Register)
		public.POST("/login", handler.Login)
	}

	protected := router.Group("/")
	protected.Use(handler.AuthRequired())
	{
		protected.POST("/logout", handler.Logout)
		protected.GET("/me", handler.Me)
		protected.POST("/create_game", handler.CreateGame)
		protected.POST("/join_game/:code", handler.JoinGame)
		protected.GET("/games", handler.ListGames)
		protected.GET("/game_state/:code", handler.GetGameState)
		protected.POST("/action/:code", handler.SubmitAction)
		protected.POST("/vote/:code", handler.SubmitVote)
		protected.POST("/guess/:code", handler.SubmitGuess)
		protected.GET("/history", handler.GetHistory)
		protected.GET("/history/:code", handler.GetHistoryDetail)
		protected.POST("/reset", handler.Reset)
	}

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}
