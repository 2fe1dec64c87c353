package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nano-forum/backend/internal/router"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/anonto42/nano-forum/backend/pkg/config"
	"github.com/anonto42/nano-forum/backend/pkg/firebase"
	"github.com/anonto42/nano-forum/backend/pkg/mailer"
)

func main() {
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	ctx := context.Background()
	repos, err := router.NewRepositories(ctx, db.SQL, db.Mongo, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to prepare storage: %v", err)
	}

	opts := router.Options{
		Tokens: services.NewTokenIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret),
		Mailer: mailer.New(mailer.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		}),
		FrontendURL:   cfg.FrontendURL,
		SecureCookies: cfg.IsProduction(),
	}
	authClient, err := firebase.InitAuth(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	if authClient != nil {
		opts.Verifier = authClient
	}
	tasks := services.NewBackgroundTasks(cfg.FanoutTimeout)
	opts.Tasks = tasks

	e := router.NewServer(cfg, repos, opts)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := tasks.Wait(shutdownCtx); err != nil {
		log.Printf("Pending notification tasks abandoned: %v", err)
	}
	log.Println("Server exiting")
}
