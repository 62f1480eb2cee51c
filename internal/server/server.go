package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"syncboard/internal/config"
	"syncboard/internal/engine"
	"syncboard/internal/handler"
	"syncboard/internal/middleware"
	"syncboard/internal/store"
	"syncboard/internal/sync"
)

type Server struct {
	Engine *gin.Engine
	Store  store.Store
	Config *config.Config
	Log    *logrus.Logger
}

func Init(cfg *config.Config) (*Server, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	st, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	eng := engine.New(st, log)
	syncSvc := sync.New(st)

	userHandler := handler.NewUserHandler(st, cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	boardHandler := handler.NewBoardHandler(st, eng, syncSvc)
	columnHandler := handler.NewColumnHandler(st, eng)
	cardHandler := handler.NewCardHandler(st, eng)

	r := gin.Default()
	r.Use(middleware.RequestID())

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		// Board routes
		authorized.POST("/boards", boardHandler.Create)
		authorized.GET("/boards", boardHandler.GetAll)
		authorized.POST("/boards/:id/clone", boardHandler.Clone)
		authorized.GET("/boards/:id/updates", boardHandler.Updates)
		authorized.POST("/boards/:id/lock", boardHandler.SetColumnsLocked)
		authorized.POST("/boards/:id/share", boardHandler.Share)
		authorized.DELETE("/boards/:id/share/:user_id", boardHandler.RemoveShare)

		// Column routes
		authorized.POST("/boards/:id/columns", columnHandler.Create)
		authorized.POST("/columns/:id/move", columnHandler.Move)
		authorized.PUT("/columns/:id", columnHandler.Update)
		authorized.POST("/columns/:id/lock", columnHandler.SetLocked)
		authorized.DELETE("/columns/:id", columnHandler.Delete)

		// Card routes
		authorized.POST("/columns/:id/cards", cardHandler.Create)
		authorized.POST("/cards/:id/move", cardHandler.Move)
		authorized.PUT("/cards/:id", cardHandler.Update)
		authorized.POST("/cards/:id/complete", cardHandler.SetCompleted)
		authorized.DELETE("/cards/:id", cardHandler.Delete)
		authorized.POST("/cards/:id/assign", cardHandler.Assign)
		authorized.POST("/cards/:id/unassign", cardHandler.Unassign)
		authorized.POST("/cards/:id/messages", cardHandler.PostMessage)
		authorized.DELETE("/messages/:id", cardHandler.DeleteMessage)
	}

	return &Server{
		Engine: r,
		Store:  st,
		Config: cfg,
		Log:    log,
	}, nil
}

func openStore(cfg *config.Config, log *logrus.Logger) (store.Store, error) {
	if cfg.Storage == "memory" {
		log.Warn("using in-memory storage; data is lost on shutdown")
		return store.NewMemory(), nil
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	st := store.NewDB(db)
	if err := st.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info("connected to database")
	return st, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		s.Log.WithField("port", s.Config.ServerPort).Info("server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Log.WithError(err).Fatal("failed to listen")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.Log.WithError(err).Fatal("server forced to shutdown")
	}

	s.Log.Info("server exited properly")
}
