package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/go-auth-web/internal/config"
	"github.com/go-auth-web/internal/infrastructure/cookies"
	"github.com/go-auth-web/internal/infrastructure/dynamo"
	"github.com/go-auth-web/internal/infrastructure/google"
	jwtinfra "github.com/go-auth-web/internal/infrastructure/jwt"
	s3infra "github.com/go-auth-web/internal/infrastructure/s3"
	"github.com/go-auth-web/internal/infrastructure/smtp"
	"github.com/go-auth-web/internal/infrastructure/sns"
	transporthttp "github.com/go-auth-web/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Session-cookie token signer. Nothing works without it.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("session token provider: %v", err)
	}

	if cfg.StashSecret == "" {
		log.Println("WARN: VERIFY_SECRET not set; verify stash cookies use an empty key")
	}
	stash := cookies.NewStash(cfg.StashSecret, cfg.VerificationPeriod, cfg.IsProduction())

	// S3 avatar store.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS account-event publisher (optional — graceful fallback).
	var events sns.Publisher
	if pub, err := sns.NewPublisher(cfg); err == nil {
		events = pub
	} else {
		log.Printf("WARN: account events disabled: %v", err)
	}

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications),
		S3Store:          s3Store,
		Mailer:           mailer,
		Events:           events,
		GoogleVerifier:   google.NewVerifier(cfg.GoogleClientID),
		JWTProvider:      jwtProvider,
		Stash:            stash,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
