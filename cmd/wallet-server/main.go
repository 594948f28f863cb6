package main

import (
	"context"
	"encoding/hex"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/internal/chain/evm"
	"wallet-custody/internal/chain/solana"
	"wallet-custody/internal/exchange/hyperliquid"
	"wallet-custody/internal/handler"
	"wallet-custody/internal/model"
	"wallet-custody/internal/server"
	"wallet-custody/internal/service"
	"wallet-custody/internal/service/fee"
	"wallet-custody/internal/service/mq"
	"wallet-custody/internal/service/provision"
	"wallet-custody/internal/service/renewal"
	"wallet-custody/internal/service/withdraw"
	"wallet-custody/internal/session"
	"wallet-custody/internal/store"
	"wallet-custody/internal/worker"
	"wallet-custody/internal/worker/tasks"
	"wallet-custody/pkg/cache"
	"wallet-custody/pkg/config"
	"wallet-custody/pkg/database"
	"wallet-custody/pkg/hdwallet"
	"wallet-custody/pkg/kms"
	"wallet-custody/pkg/logger"
	"wallet-custody/pkg/utils/lock"
	"wallet-custody/pkg/validator"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// 0. 初始化 Config
	config.Init()
	cfg := config.Global

	// 1. 初始化 Logger
	logger.Init(cfg.App.Env)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. 连接数据库
	db, err := database.ConnectPostgres(database.DSN(cfg.DB), cfg.App.Env)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	if cfg.DB.AutoMigrate {
		logger.Info("开发环境: 自动迁移 Schema (GORM AutoMigrate)...")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("数据库自动迁移失败", zap.Error(err))
		}
	}

	// 3. 连接 Redis
	rdb, err := database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 4. 签名密钥加密
	keys := newKeyManager(cfg)

	// 5. 链注册表
	registry := newRegistry(ctx, cfg)
	if err := validator.Init(chain.Names()); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	exchange := hyperliquid.NewClient(cfg.Exchange.ApiUrl, cfg.Exchange.IsMainnet, 10*time.Second)
	registry.Register(hyperliquid.NewRoute(exchange, cfg.Exchange.ExplorerUrl))

	// 6. 持久化层
	st := store.New(db, keys, lock.NewRedisLock(rdb), registry, exchange, store.Options{
		AgentName:     cfg.Exchange.AgentName,
		AgentValidity: cfg.Exchange.AgentValidity,
		RenewWithin:   cfg.Renewal.RenewWithin,
	})
	sessions := session.NewStore(cfg.Session.IdleTimeout)

	// 7. 异步确认任务
	workerClient := worker.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Worker.PollDelay)

	// 8. 业务服务
	provisioner := provision.NewController(st, hdwallet.NewEngine())

	platformFee, err := decimal.NewFromString(cfg.Exchange.WithdrawFeeUSDC)
	if err != nil {
		logger.Fatal("exchange.withdraw_fee_usdc 配置错误", zap.Error(err))
	}
	estimator := fee.NewEstimator(registry, map[chain.ID]fee.PlatformFee{
		chain.Hyperliquid: {Amount: platformFee, Currency: "USDC", Description: "Exchange withdrawal fee"},
	})
	withdrawals := withdraw.NewService(st, estimator, withdraw.NewExecutor(registry), registry, workerClient)

	statusCache := cache.NewMultiLevelCache(
		cache.NewMemoryCache(cfg.Renewal.StatusCacheTTL, time.Minute),
		cache.NewRedisCache(rdb),
	)
	renewals := renewal.NewController(st, statusCache, renewal.Options{
		HealthyAfter:    cfg.Renewal.HealthyAfter,
		RenewWithin:     cfg.Renewal.RenewWithin,
		AttemptWindow:   cfg.Renewal.AttemptWindow,
		FailureCooldown: cfg.Renewal.FailureCooldown,
		StatusCacheTTL:  cfg.Renewal.StatusCacheTTL,
	})

	// 9. 后台组件
	pollHandler := tasks.NewWithdrawalPollHandler(withdrawals, workerClient, cfg.Worker.PollDelay, cfg.Worker.MaxPolls)
	workerServer := worker.NewServer(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Worker.Concurrency, pollHandler)
	if err := workerServer.Start(); err != nil {
		logger.Fatal("Worker 启动失败", zap.Error(err))
	}

	scheduler := renewal.NewScheduler(renewals, sessions, cfg.Renewal.PollInterval)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("续期调度启动失败", zap.Error(err))
	}

	var producer mq.Producer
	if cfg.Redis.MQType == "kafka" {
		logger.Info("使用 Kafka 作为消息队列...")
		producer = mq.NewKafkaProducer(cfg.Kafka.Brokers)
	} else {
		logger.Info("使用 Redis Streams 作为消息队列...")
		producer = mq.NewRedisProducer(rdb, 100000)
	}
	relay := service.NewRelayService(db, producer)
	go relay.Start(ctx)

	// 10. HTTP
	r := server.NewHTTPRouter(server.Handlers{
		Wallet:     handler.NewWalletHandler(provisioner, st, sessions),
		Withdraw:   handler.NewWithdrawHandler(withdrawals),
		Credential: handler.NewCredentialHandler(renewals),
		Sessions:   sessions,
		Limiter:    handler.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	})

	app := server.New(server.Config{HttpPort: cfg.App.HttpPort}, r)
	app.OnShutdown(func() {
		logger.Info("正在关闭数据库连接...")
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = rdb.Close()
	})
	app.OnShutdown(func() { _ = producer.Close() })
	app.OnShutdown(func() { _ = workerClient.Close() })
	app.OnShutdown(workerServer.Stop)
	app.OnShutdown(scheduler.Stop)
	app.OnShutdown(cancel)

	// 运行 (阻塞)
	app.Run()
	logger.Info("系统已退出")
}

// newKeyManager 正式环境必须配置主密钥；开发环境缺省时生成临时密钥，重启后已有数据不可解密
func newKeyManager(cfg config.Config) kms.KeyManager {
	if cfg.Security.MasterKey == "" {
		if cfg.App.Env == "production" {
			logger.Fatal("security.master_key 未配置")
		}
		k := kms.NewLocalKMS()
		if _, err := k.CreateKey(kms.KeyTypeAES); err != nil {
			logger.Fatal("生成临时主密钥失败", zap.Error(err))
		}
		logger.Warn("未配置 security.master_key，使用临时主密钥 (仅限开发环境)")
		return k
	}

	master, err := hex.DecodeString(cfg.Security.MasterKey)
	if err != nil {
		logger.Fatal("security.master_key 不是合法的 hex", zap.Error(err))
	}
	k, err := kms.NewLocalKMSWithMasterKey(master)
	if err != nil {
		logger.Fatal("导入主密钥失败", zap.Error(err))
	}
	return k
}

// newRegistry 注册配置中的 EVM 链与 Solana；单条链连接失败只跳过该链
func newRegistry(ctx context.Context, cfg config.Config) *chain.Registry {
	registry := chain.NewRegistry()

	for name, cc := range cfg.Chains {
		id := chain.ID(name)
		client, err := evm.Dial(ctx, cc.RpcUrl)
		if err != nil {
			logger.Error("EVM 节点连接失败，跳过该链", zap.String("chain", name), zap.Error(err))
			continue
		}
		network, err := evm.NewNetwork(ctx, id, client, cc.ChainID, cc.ExplorerUrl)
		if err != nil {
			logger.Error("初始化 EVM 链失败，跳过该链", zap.String("chain", name), zap.Error(err))
			continue
		}
		registry.Register(network)
	}

	if cfg.Solana.RpcUrl != "" {
		registry.Register(solana.NewNetwork(solana.Dial(cfg.Solana.RpcUrl), cfg.Solana.Commitment, cfg.Solana.ExplorerUrl))
	}

	logger.Info("链注册完成", zap.Any("chains", registry.List()))
	return registry
}
