package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "pollbooth/docs"
	"pollbooth/internal/config"
	"pollbooth/internal/domain/poll"
	"pollbooth/internal/domain/user"
	"pollbooth/internal/domain/vote"
	api "pollbooth/internal/http"
	"pollbooth/internal/metrics"
	"pollbooth/internal/platform/database"
	jwtpkg "pollbooth/internal/platform/jwt"
	"pollbooth/internal/platform/rediscache"
	"pollbooth/internal/repository/postgres"
	"pollbooth/internal/retry"
	"pollbooth/internal/worker"
)

// @title           Pollbooth API
// @version         1.0
// @description     Time-boxed polling service with JWT auth
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg := config.Load()

	metrics.Register()

	db, err := database.NewPostgres(cfg.DB_DSN)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	var resultsCache vote.Cache
	if cfg.RedisAddr != "" {
		cache := rediscache.New(cfg.RedisAddr, 24*time.Hour)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := retry.DoWithRetry(pingCtx, 3, 500*time.Millisecond, func() error {
			return cache.Ping(pingCtx)
		})
		pingCancel()
		if err != nil {
			log.Printf("redis unavailable, results cache disabled: %v", err)
		} else {
			defer cache.Close()
			resultsCache = cache
		}
	}

	userRepo := postgres.NewUserRepo(db)
	pollRepo := postgres.NewPollRepo(db)
	voteRepo := postgres.NewVoteRepo(db)

	userSvc := user.NewService(userRepo)
	pollSvc := poll.NewService(pollRepo)
	voteSvc := vote.NewService(pollRepo, voteRepo, resultsCache)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret)

	voteCh := make(chan worker.VoteEvent, 100)
	statsWorker := worker.NewStatsWorker(voteCh)

	router := api.NewRouter(userSvc, pollSvc, voteSvc, jwtMgr, voteCh, db)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go statsWorker.Run(ctx)

	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown error: %v", err)
	}

	log.Println("server stopped")
}
