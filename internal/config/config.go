package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config expohall 服务配置（expohall-edge / expohall-data 共用）
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Edge EdgeConfig
	MQTT MQTTConfig
}

// DatabaseConfig 文档库（PostgreSQL）配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// EdgeConfig 边缘网关（expohall-edge）配置
type EdgeConfig struct {
	UpstreamBaseURL string        // 云端 API 地址（签到上报 + 缓存回源）
	DataDir         string        // 本地持久化目录（LevelDB：缓存层 + 离线签到队列）
	CacheBackend    string        // "leveldb"（默认）或 "redis"
	CacheVersion    string        // 缓存代版本，升级后旧代在激活时被清除
	PolicyFile      string        // 缓存策略表 YAML（可选，缺省用内置策略）
	PrecachePaths   []string      // 启动时预缓存的静态路径
	ReplayInterval  time.Duration // 离线队列定期重放间隔
}

// MQTTConfig MQTT 配置（用于云端下发"立即同步"触发，默认禁用）
type MQTTConfig struct {
	Enabled  bool   // 是否启用 MQTT 触发重放（默认 false）
	Broker   string // MQTT Broker 地址（如 "tcp://localhost:1883"）
	ClientID string // 客户端 ID
	Username string // 用户名（可选）
	Password string // 密码（可选）
	Topic    string // 订阅的主题（如 "expohall/sync"）
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, expohall-data will
	// fall back to the in-memory docstore instead of failing to start.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "expohall")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// Edge 配置
	cfg.Edge.UpstreamBaseURL = getEnv("UPSTREAM_BASE_URL", "http://localhost:9000")
	cfg.Edge.DataDir = getEnv("EDGE_DATA_DIR", "./data/edge")
	cfg.Edge.CacheBackend = getEnv("EDGE_CACHE_BACKEND", "leveldb")
	cfg.Edge.CacheVersion = getEnv("EDGE_CACHE_VERSION", "v1")
	cfg.Edge.PolicyFile = getEnv("EDGE_POLICY_FILE", "")
	cfg.Edge.PrecachePaths = splitPaths(getEnv("EDGE_PRECACHE_PATHS", "/,/offline.html"))
	cfg.Edge.ReplayInterval = parseDuration(getEnv("EDGE_REPLAY_INTERVAL", "30s"), 30*time.Second)

	// MQTT 配置（云端触发立即重放，默认禁用）
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "expohall-edge")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "expohall/sync")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitPaths(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if p := s[start:i]; p != "" {
				out = append(out, p)
			}
			start = i + 1
		}
	}
	return out
}
