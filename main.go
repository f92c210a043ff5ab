package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"CrossChat/config"
	"CrossChat/logger"
	"CrossChat/middleware"
	mwsecurity "CrossChat/middleware/security"
	"CrossChat/service/chat"
	"CrossChat/service/natsx"
	"CrossChat/service/storage"
	"CrossChat/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := buildStorage(ctx, cfg)

	auth := security.DefaultOptions([]byte(cfg.JWTSecret))
	srv := chat.NewServer(store, chat.Options{
		GatewayID:     cfg.GatewayID,
		SendQueueSize: cfg.SendQueueSize,
		FanoutWorkers: cfg.FanoutWorkers,
		FanoutQueue:   cfg.FanoutQueue,
		Auth:          auth,
	})
	defer srv.Close()

	if cfg.RedisAddr != "" {
		mirror, err := storage.NewPresenceMirror(ctx, storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.PresenceTTL,
		}, cfg.GatewayID)
		if err != nil {
			logger.Errorf("[main] presence mirror disabled: %v", err)
		} else {
			defer func() { _ = mirror.Close() }()
			srv.SetPresenceMirror(mirror)
			logger.Infof("[main] presence mirror on %s", cfg.RedisAddr)
		}
	}

	if len(cfg.NatsServers) > 0 {
		nm, err := natsx.NewNatsManager(natsx.NatsxConfig{
			Servers: cfg.NatsServers,
			Name:    cfg.NatsName,
		})
		if err != nil {
			logger.Errorf("[main] event mirror disabled: %v", err)
		} else {
			defer func() { _ = nm.Close() }()
			_ = nm.RegisterRoute(natsx.NatsxRoute{Biz: chat.BizMessageEvents, Subject: cfg.MessageSubject, Mode: natsx.Core})
			_ = nm.RegisterRoute(natsx.NatsxRoute{Biz: chat.BizPresenceEvents, Subject: cfg.PresenceSubject, Mode: natsx.Core})
			srv.SetEventMirror(nm)
			logger.Infof("[main] event mirror on %v", cfg.NatsServers)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Origin(cfg.AllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ts": time.Now().UnixMilli()})
	})
	r.GET("/ws", srv.HandleWS)

	authed := r.Group("/", mwsecurity.Middleware(auth))
	authed.GET("/presence/:userId", srv.HandlePresence)

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		logger.Infof("[main] gateway %s listening on %s", cfg.GatewayID, cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[main] listen: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("[main] shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Errorf("[main] shutdown: %v", err)
	}
}

func buildStorage(ctx context.Context, cfg config.Config) storage.Storage {
	if cfg.MongoURI == "" {
		logger.Warn("[main] MONGODB_URI empty, using in-memory storage")
		return storage.NewMemory()
	}
	st, err := storage.NewMongo(ctx, storage.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	})
	if err != nil {
		logger.Errorf("[main] mongo unavailable, falling back to memory: %v", err)
		return storage.NewMemory()
	}
	logger.Infof("[main] mongo storage %s/%s", cfg.MongoURI, cfg.MongoDatabase)
	return st
}
