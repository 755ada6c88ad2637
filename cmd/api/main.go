package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	v1 "github.com/toji20/HomoChat/cmd/api/router/v1"
	cacheadapter "github.com/toji20/HomoChat/internal/infrastructure/cache/adapter"
	"github.com/toji20/HomoChat/internal/infrastructure/database"
	"github.com/toji20/HomoChat/internal/infrastructure/push"
	queueadapter "github.com/toji20/HomoChat/internal/infrastructure/queue/adapter"
	qport "github.com/toji20/HomoChat/internal/infrastructure/queue/port"
	"github.com/toji20/HomoChat/internal/infrastructure/realtime"
	chatadapter "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/adapter"
	chatport "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
	chathttp "github.com/toji20/HomoChat/internal/pkg/chat/presentation/http"
	"github.com/toji20/HomoChat/internal/pkg/media"
	useradapter "github.com/toji20/HomoChat/internal/repository/adapter"
	userport "github.com/toji20/HomoChat/internal/repository/port"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// .env is optional; real deployments pass environment directly.
		_ = err
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		chatRepo chatport.ChatRepository
		users    userport.UserRepository
	)
	if os.Getenv("DB_URL") != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := database.NewPoolFromEnv(connectCtx)
		cancel()
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		chatRepo = chatadapter.NewPgChatRepository(pool)
		users = useradapter.NewPgUserRepository(pool)
	} else {
		log.Warn("DB_URL not set, using in-memory stores")
		chatRepo = chatadapter.NewMemChatRepository()
		users = useradapter.NewMemUserRepository()
	}

	var queue qport.Client
	if os.Getenv("REDIS_URL") != "" {
		cache, err := cacheadapter.NewRedisAdapter()
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer cache.Close()
		users = useradapter.NewCachedUserRepository(users, cache)

		client, err := queueadapter.NewAsynqClientFromEnv()
		if err != nil {
			log.Fatal("failed to create queue client", zap.Error(err))
		}
		defer client.Close()
		queue = client
	} else {
		log.Warn("REDIS_URL not set, profile cache and index repair queue disabled")
	}

	mediaDir := os.Getenv("MEDIA_DIR")
	if mediaDir == "" {
		mediaDir = "./media"
	}
	mediaBaseURL := os.Getenv("MEDIA_BASE_URL")
	if mediaBaseURL == "" {
		mediaBaseURL = "/media"
	}
	blobs, err := media.NewFsBlobStore(mediaDir, mediaBaseURL)
	if err != nil {
		log.Fatal("failed to prepare media dir", zap.Error(err))
	}

	broker := push.NewBroker()
	registry := realtime.NewRegistry()
	defer registry.Close()

	r := gin.Default()
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.Static("/media", blobs.Dir())

	v1.RegisterRoutes(r, chathttp.Deps{
		Repo:     chatRepo,
		Users:    users,
		Broker:   broker,
		Queue:    queue,
		Registry: registry,
		Media:    media.NewCoordinator(blobs),
		Log:      log,
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Info("api listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
}
