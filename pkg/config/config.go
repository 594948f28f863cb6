package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig              `mapstructure:"app"`
	DB        DBConfig               `mapstructure:"db"`
	Redis     RedisConfig            `mapstructure:"redis"`
	Kafka     KafkaConfig            `mapstructure:"kafka"`
	Security  SecurityConfig         `mapstructure:"security"`
	Chains    map[string]ChainConfig `mapstructure:"chains"`
	Solana    SolanaConfig           `mapstructure:"solana"`
	Exchange  ExchangeConfig         `mapstructure:"exchange"`
	Renewal   RenewalConfig          `mapstructure:"renewal"`
	Worker    WorkerConfig           `mapstructure:"worker"`
	RateLimit RateLimitConfig        `mapstructure:"ratelimit"`
	Session   SessionConfig          `mapstructure:"session"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`

	// AutoMigrate 仅用于本地开发，正式环境使用 cmd/migrate
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type SecurityConfig struct {
	// MasterKey 32 字节 AES 主密钥 (hex)，通常通过环境变量 SECURITY_MASTER_KEY 传入
	MasterKey string `mapstructure:"master_key"`
}

// ChainConfig EVM 链节点配置，key 为链名 (ethereum / arbitrum / polygon / bnb / hyperevm)
type ChainConfig struct {
	RpcUrl      string `mapstructure:"rpc_url"`
	ChainID     int64  `mapstructure:"chain_id"`
	ExplorerUrl string `mapstructure:"explorer_url"`
}

type SolanaConfig struct {
	RpcUrl      string `mapstructure:"rpc_url"`
	Commitment  string `mapstructure:"commitment"`
	ExplorerUrl string `mapstructure:"explorer_url"`
}

type ExchangeConfig struct {
	ApiUrl          string        `mapstructure:"api_url"`
	IsMainnet       bool          `mapstructure:"is_mainnet"`
	AgentName       string        `mapstructure:"agent_name"`
	AgentValidity   time.Duration `mapstructure:"agent_validity"`
	WithdrawFeeUSDC string        `mapstructure:"withdraw_fee_usdc"`
	ExplorerUrl     string        `mapstructure:"explorer_url"`
}

type RenewalConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	HealthyAfter    time.Duration `mapstructure:"healthy_after"`
	RenewWithin     time.Duration `mapstructure:"renew_within"`
	AttemptWindow   time.Duration `mapstructure:"attempt_window"`
	FailureCooldown time.Duration `mapstructure:"failure_cooldown"`
	StatusCacheTTL  time.Duration `mapstructure:"status_cache_ttl"`
}

type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	PollDelay   time.Duration `mapstructure:"poll_delay"`
	MaxPolls    int           `mapstructure:"max_polls"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "wallet_user")
	viper.SetDefault("db.password", "wallet_password")
	viper.SetDefault("db.name", "wallet_db")
	viper.SetDefault("db.auto_migrate", false)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("chains", map[string]interface{}{
		"ethereum": map[string]interface{}{"rpc_url": "https://ethereum-rpc.publicnode.com", "chain_id": 1, "explorer_url": "https://etherscan.io/tx/"},
		"arbitrum": map[string]interface{}{"rpc_url": "https://arb1.arbitrum.io/rpc", "chain_id": 42161, "explorer_url": "https://arbiscan.io/tx/"},
		"polygon":  map[string]interface{}{"rpc_url": "https://polygon-rpc.com", "chain_id": 137, "explorer_url": "https://polygonscan.com/tx/"},
		"bnb":      map[string]interface{}{"rpc_url": "https://bsc-dataseed.binance.org", "chain_id": 56, "explorer_url": "https://bscscan.com/tx/"},
		"hyperevm": map[string]interface{}{"rpc_url": "https://rpc.hyperliquid.xyz/evm", "chain_id": 999, "explorer_url": "https://hyperevmscan.io/tx/"},
	})

	viper.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	viper.SetDefault("solana.commitment", "confirmed")
	viper.SetDefault("solana.explorer_url", "https://solscan.io/tx/")

	viper.SetDefault("exchange.api_url", "https://api.hyperliquid.xyz")
	viper.SetDefault("exchange.is_mainnet", true)
	viper.SetDefault("exchange.agent_name", "wallet-custody")
	viper.SetDefault("exchange.agent_validity", 7*24*time.Hour)
	viper.SetDefault("exchange.withdraw_fee_usdc", "1")
	viper.SetDefault("exchange.explorer_url", "https://app.hyperliquid.xyz/explorer/tx/")

	viper.SetDefault("renewal.poll_interval", time.Minute)
	viper.SetDefault("renewal.healthy_after", 48*time.Hour)
	viper.SetDefault("renewal.renew_within", 24*time.Hour)
	viper.SetDefault("renewal.attempt_window", 10*time.Minute)
	viper.SetDefault("renewal.failure_cooldown", 5*time.Minute)
	viper.SetDefault("renewal.status_cache_ttl", 30*time.Second)

	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.poll_delay", 15*time.Second)
	viper.SetDefault("worker.max_polls", 240)

	viper.SetDefault("ratelimit.requests_per_second", 1)
	viper.SetDefault("ratelimit.burst", 3)

	viper.SetDefault("session.idle_timeout", 30*time.Minute)
}
