package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/makbank/bankhub.go/db"
	"github.com/makbank/bankhub.go/lib"
	"github.com/makbank/bankhub.go/lib/service"
)

// script to check every stored balance against the transaction log
func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := lib.Logger(c.LogFilePath)

	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn: c.SentryDSN,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}

	ctx := context.Background()
	bankStore, err := db.OpenStore(ctx, c)
	if err != nil {
		logger.Fatalf("Error initializing store: %v", err)
	}

	svc := &service.BankService{
		Config: c,
		Store:  bankStore,
		Logger: logger,
	}

	mismatches, err := svc.ReconcileAll(ctx)
	bankStore.Close()
	if err != nil {
		sentry.CaptureException(err)
		logger.Fatalf("Reconciliation failed: %v", err)
	}
	for _, m := range mismatches {
		logger.Errorf("account_id:%v account_number:%s balance:%v log_balance:%v entries:%v",
			m.AccountID, m.AccountNumber, m.Balance, m.LogBalance, m.Entries)
	}
	if len(mismatches) > 0 {
		sentry.CaptureMessage(fmt.Sprintf("reconciliation found %d balance mismatches", len(mismatches)))
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
	logger.Info("All balances match the transaction log")
}
