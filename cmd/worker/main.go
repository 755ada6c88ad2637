package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/toji20/HomoChat/internal/infrastructure/database"
	"github.com/toji20/HomoChat/internal/infrastructure/push"
	queueadapter "github.com/toji20/HomoChat/internal/infrastructure/queue/adapter"
	"github.com/toji20/HomoChat/internal/pkg/chat/application/task"
	chatadapter "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/adapter"
)

// The worker consumes index repair tasks: it re-derives chat-index
// entries from the conversation log after a partial upsert failure.
func main() {
	if err := godotenv.Load(); err != nil {
		_ = err
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := database.NewPoolFromEnv(connectCtx)
	cancel()
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	srv, err := queueadapter.NewAsynqServer(log)
	if err != nil {
		log.Fatal("failed to create queue server", zap.Error(err))
	}

	// Repairs running in this process have no websocket subscribers; the
	// broker is still wired so entry deltas reach any in-process readers.
	repo := chatadapter.NewPgChatRepository(pool)
	task.RegisterRepairIndexTask(srv, repo, push.NewBroker())

	log.Info("worker starting")
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("queue server failed", zap.Error(err))
	}
	log.Info("worker stopped")
}
