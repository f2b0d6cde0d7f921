package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"expohall/internal/cache"
	"expohall/internal/client"
	"expohall/internal/config"
	httpapi "expohall/internal/http"
	"expohall/internal/logger"
	"expohall/internal/queue"
	"expohall/internal/replay"
	"expohall/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "expohall-edge")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 缓存策略表：文件优先，缺省用内置表
	policy := cache.DefaultPolicy()
	if cfg.Edge.PolicyFile != "" {
		p, err := cache.LoadPolicy(cfg.Edge.PolicyFile)
		if err != nil {
			log.Fatal("Failed to load cache policy", zap.String("file", cfg.Edge.PolicyFile), zap.Error(err))
		}
		policy = p
	}

	// 缓存层后端：默认本地 LevelDB；多网关共享缓存时切 Redis
	var backend cache.TierBackend
	var redisClient *redis.Client
	var levelTiers *cache.LevelDBTiers
	if cfg.Edge.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		backend = cache.NewRedisTiers(redisClient)
	} else {
		levelTiers, err = cache.OpenLevelDBTiers(filepath.Join(cfg.Edge.DataDir, "tiers"))
		if err != nil {
			log.Fatal("Failed to open cache store", zap.Error(err))
		}
		backend = levelTiers
	}

	upstream := client.NewUpstream(cfg.Edge.UpstreamBaseURL, log)

	// 新缓存代激活：回收旧代、预缓存固定路径
	gen := cache.NewGeneration(backend, cfg.Edge.CacheVersion, log)
	if err := gen.Activate(ctx); err != nil {
		log.Warn("Cache generation activation incomplete", zap.Error(err))
	}
	gen.Warm(ctx, upstream, cfg.Edge.PrecachePaths)

	resolver := cache.NewResolver(policy, gen, upstream, log)

	// 离线签到队列（本地持久化，比缓存写入重要：不可用即硬错误）
	checkinQueue, err := queue.OpenLevelDBQueue(filepath.Join(cfg.Edge.DataDir, "checkins"))
	if err != nil {
		log.Fatal("Failed to open check-in queue", zap.Error(err))
	}

	replayer := replay.NewReplayer(checkinQueue, upstream, upstream,
		cfg.Edge.ReplayInterval, clockwork.NewRealClock(), log)
	go func() {
		_ = replayer.Run(ctx)
	}()

	// MQTT 触发（云端下发"立即同步"，默认禁用）
	var mqttTrigger *replay.MQTTTrigger
	if cfg.MQTT.Enabled {
		if t, err := replay.StartMQTTTrigger(&cfg.MQTT, replayer, log); err == nil {
			mqttTrigger = t
		} else {
			log.Warn("MQTT trigger disabled: connection failed", zap.Error(err))
		}
	}

	checkins := service.NewCheckInService(checkinQueue, upstream, replayer.Trigger, log)

	router := httpapi.NewRouter(log)
	router.RegisterEdgeRoutes(
		httpapi.NewCheckInHandler(checkins, replayer, log),
		httpapi.NewProxyHandler(resolver, log),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if mqttTrigger != nil {
		mqttTrigger.Stop()
	}
	_ = checkinQueue.Close()
	if levelTiers != nil {
		_ = levelTiers.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
