// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jordwess/knavery/internal/database"
	"github.com/jordwess/knavery/internal/handlers"
	"github.com/jordwess/knavery/internal/history"
	"github.com/jordwess/knavery/internal/middleware"
)

func main() {
	logger := logrus.New()
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Both sinks are optional: the engine runs fine with neither configured.
	if os.Getenv("REDIS_ADDR") != "" {
		if err := history.ConnectRedis(); err != nil {
			logger.Warnf("history sink disabled: %v", err)
		}
	}
	if os.Getenv("DATABASE_URL") != "" {
		ctx := context.Background()
		if err := database.ConnectDB(ctx); err != nil {
			logger.Warnf("db sink disabled: %v", err)
		} else {
			defer database.CloseDB()
			if err := database.EnsureSchema(ctx); err != nil {
				logger.Warnf("db schema: %v", err)
			}
		}
	}

	srv := handlers.NewGameServer(logger)

	mux := http.NewServeMux()

	// game websocket
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))

	// join link QR code
	mux.Handle("/join/qr", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.JoinQRHandler(logger),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
