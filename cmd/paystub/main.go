// Command paystub serves a local payment service and card processor for
// development. PAYSTUB_DECIDER=token follows the processor's test tokens;
// anything else approves at random.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	h "github.com/ErnestIssa/peak-mode/internal/http"
	"github.com/ErnestIssa/peak-mode/internal/paystub"
	"github.com/ErnestIssa/peak-mode/pkg/logger"
	"github.com/ErnestIssa/peak-mode/pkg/shutdown"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Options{
		Service: "paystub",
		Env:     getEnv("APP_ENV", "dev"),
		Level:   getEnv("LOG_LEVEL", "debug"),
	})

	port, err := strconv.Atoi(getEnv("PAYSTUB_PORT", "8090"))
	if err != nil {
		log.Error("invalid PAYSTUB_PORT", slog.Any("err", err))
		os.Exit(1)
	}

	var decider paystub.Decider = paystub.RandomDecider{}
	if getEnv("PAYSTUB_DECIDER", "token") == "token" {
		decider = paystub.TokenDecider{}
	}
	stub := paystub.NewServer(getEnv("PAYSTUB_PUBLIC_KEY", "pk_test_peakmode"), decider)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.RequestLogger(log)(stub.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("paystub listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("paystub server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("paystub shutdown error", slog.Any("err", err))
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
