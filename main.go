package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaos-io/maskeraser/aiclient"
	"github.com/chaos-io/maskeraser/cache"
	"github.com/chaos-io/maskeraser/config"
	"github.com/chaos-io/maskeraser/server"
	"github.com/chaos-io/maskeraser/util"
	nhttp "github.com/chaos-io/maskeraser/util/http"
	"github.com/chaos-io/maskeraser/workflow"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := util.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.Sync()

	opts := []aiclient.Option{
		aiclient.WithHTTPClient(nhttp.NewHTTPClient(nhttp.WithTimeout(cfg.Removal.Timeout))),
	}

	// 结果缓存可选，Redis 不可用时直接请求远端
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedisCache(&cfg.Redis)
		if err := redisCache.Ping(context.Background()); err != nil {
			util.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
		} else {
			util.Logger.Info("redis connected successfully")
			opts = append(opts, aiclient.WithCache(redisCache))
		}
		defer redisCache.Close()
	}

	remover := aiclient.New(cfg.Removal.BaseURL, opts...)

	// 命令行模式: maskeraser remove -image in.png -mask mask.png -out out.svg
	if len(os.Args) > 1 && os.Args[1] == "remove" {
		if err := runRemove(context.Background(), cfg, remover, os.Args[2:]); err != nil {
			util.Logger.Error("remove failed", zap.Error(err))
			util.Sync()
			os.Exit(1)
		}
		return
	}

	util.Logger.Info("starting maskeraser server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	store := server.NewSessionStore(cfg.Session.TTL, func() (*workflow.Editor, *workflow.Toasts) {
		toasts := workflow.NewToasts(cfg.Session.MaxNotifications)
		editor := workflow.NewEditor(remover, workflow.WithNotifier(toasts))
		return editor, toasts
	})
	if err := store.StartSweeper(cfg.Session.SweepSpec); err != nil {
		util.Logger.Fatal("invalid session sweep spec", zap.String("spec", cfg.Session.SweepSpec), zap.Error(err))
	}
	defer store.StopSweeper()

	r := server.NewRouter(cfg, store, server.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		util.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	util.Logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Error("server forced to shutdown", zap.Error(err))
	}
}
