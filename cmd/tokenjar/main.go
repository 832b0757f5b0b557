package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"tokenjar/internal/database"
	"tokenjar/internal/ledger"
	"tokenjar/internal/logging"
	"tokenjar/internal/push"
	"tokenjar/internal/server"
	"tokenjar/internal/sweep"
)

func main() {
	genKeys := flag.Bool("generate-vapid-keys", false, "print a new VAPID key pair and exit")
	flag.Parse()

	if *genKeys {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("generate VAPID keys: %v", err)
		}
		fmt.Printf("TOKENJAR_VAPID_PUBLIC_KEY=%s\nTOKENJAR_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	logger := logging.Setup(os.Getenv("TOKENJAR_LOG_LEVEL"))

	port := os.Getenv("TOKENJAR_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("TOKENJAR_DB_PATH")
	if dbPath == "" {
		dbPath = "tokenjar.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		Sweep: sweepConfig(),
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("TOKENJAR_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("TOKENJAR_VAPID_PRIVATE_KEY"),
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.SweepScheduler().Start(ctx)
	defer srv.SweepScheduler().Stop()

	// Periodic session and rate-limit cleanup
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Debug("session cleanup", "deleted", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("tokenjar running", "addr", "http://localhost:"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func sweepConfig() sweep.Config {
	cfg := sweep.Config{
		Hour:  0,
		Scope: ledger.SweepGlobal,
	}

	if v := os.Getenv("TOKENJAR_RESET_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			cfg.Hour = h
		}
	}
	if os.Getenv("TOKENJAR_RESET_SCOPE") == "account" {
		cfg.Scope = ledger.SweepPerAccount
	}
	if tz := os.Getenv("TOKENJAR_TZ"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			cfg.Location = loc
		}
	}

	return cfg
}
