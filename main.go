package main

import (
	"context"

	"PRelay/global"
	"PRelay/logger"
	mid "PRelay/middleware"
	"PRelay/service/bus"
	"PRelay/service/relay"
	storage "PRelay/service/storage/redis"
	"PRelay/tools/ids"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := global.LoadConfig()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	ids.SetNodeID(1)

	srv := relay.NewServer(cfg)

	// bus subscription comes up before the socket listener: a relay
	// with no bus serves nothing useful and must report not-ready
	sub, err := newSubscriber(cfg)
	if err != nil {
		logger.Fatalf("bus: %v", err)
	}
	defer func() { _ = sub.Close() }()

	ctx := context.Background()
	if err := sub.Subscribe(ctx, bus.AllChannels(), srv.HandleBusMessage); err != nil {
		logger.Fatalf("bus subscribe: %v", err)
	}
	srv.SetBusReady(true)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mid.Origin(cfg))

	r.GET("/ws", srv.HandleWS)
	r.GET("/health", srv.HealthHandler)

	logger.Infof("[http] listening on %s gateway=%s backend=%s", cfg.ListenAddr(), cfg.GatewayID, cfg.BusBackend)
	if err := r.Run(cfg.ListenAddr()); err != nil {
		logger.Fatalf("http server failed: %v", err)
	}
}

func newSubscriber(cfg *global.AppConfig) (bus.Subscriber, error) {
	switch cfg.BusBackend {
	case global.BusBackendNats:
		return bus.NewNatsSubscriber(cfg.NatsServers, cfg.GatewayID)
	default:
		if err := storage.InitRedis(storage.Config{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}); err != nil {
			return nil, err
		}
		return bus.NewRedisSubscriber(storage.GetRedis()), nil
	}
}
