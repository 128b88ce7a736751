package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// GameNodeConfig game 节点的全局配置，Load 成功后可读
var GameNodeConfig GameConfiguration

type BaseConfig struct {
	ID         string `mapstructure:"id"`
	ServerType string `mapstructure:"serverType"`
	MetricPort int    `mapstructure:"metricPort"`
}

type GameConfiguration struct {
	BaseConfig   `mapstructure:",squash"`
	DatabaseConf `mapstructure:"database"`
	JwtConf      `mapstructure:"jwt"`
	LogConf      `mapstructure:"log"`
	NatsConf     `mapstructure:"nats"`
	BiscaConf    `mapstructure:"bisca"`
	StoreConf    `mapstructure:"store"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type JwtConf struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"`
}

type DatabaseConf struct {
	MongoConf MongoConf `mapstructure:"mongo"`
	RedisConf RedisConf `mapstructure:"redis"`
}

type MongoConf struct {
	Url         string `mapstructure:"url"`
	Db          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"minPoolSize"`
	MaxPoolSize int    `mapstructure:"maxPoolSize"`
}

type RedisConf struct {
	Addr         string   `mapstructure:"addr"`
	ClusterAddrs []string `mapstructure:"clusterAddrs"`
	Password     string   `mapstructure:"password"`
	PoolSize     int      `mapstructure:"poolSize"`
	MinIdleConns int      `mapstructure:"minIdleConns"`
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
}

type NatsConf struct {
	URL string `json:"url" mapstructure:"url"`
}

// BiscaConf 对局节奏相关配置，单位为秒的字段都标注了
type BiscaConf struct {
	TurnTimeoutSec    int `mapstructure:"turnTimeoutSec"`    // 出牌期限，超时判负
	TrickDelayMs      int `mapstructure:"trickDelayMs"`      // 两张牌落桌后到结算的展示间隔
	BotThinkDelayMs   int `mapstructure:"botThinkDelayMs"`   // 机器人出牌思考延迟
	DefaultWinsNeeded int `mapstructure:"defaultWinsNeeded"` // 默认胜局目标
}

// StoreConf 分布式状态存储相关配置
type StoreConf struct {
	SnapshotTTLMin       int `mapstructure:"snapshotTTLMin"`       // 快照过期时间（分钟）
	SyncIntervalSec      int `mapstructure:"syncIntervalSec"`      // 全量快照同步周期（秒）
	HeartbeatTTLSec      int `mapstructure:"heartbeatTTLSec"`      // 心跳 key 过期时间（秒）
	HeartbeatIntervalSec int `mapstructure:"heartbeatIntervalSec"` // 心跳刷新周期（秒）
	WatchdogIntervalSec  int `mapstructure:"watchdogIntervalSec"`  // 看门狗扫描周期（秒）
	LivenessThresholdSec int `mapstructure:"livenessThresholdSec"` // 心跳失活阈值（秒）
	MaxSessionAgeMin     int `mapstructure:"maxSessionAgeMin"`     // 会话最长存活时间（分钟）
}

func Load(configFile string) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	v.WatchConfig()
	v.OnConfigChange(func(in fsnotify.Event) {
		// 目前只有日志级别支持热更，其余配置重启生效
	})

	var cfg GameConfiguration
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	if nodeID := os.Getenv("NODE_ID"); nodeID != "" {
		cfg.ID = nodeID
	}
	if cfg.ID == "" {
		return fmt.Errorf("NODE_ID environment variable is required")
	}
	if cfg.ServerType != "game" {
		return fmt.Errorf("unknown server type: %s", cfg.ServerType)
	}

	applyDefaults(&cfg)
	GameNodeConfig = cfg
	return nil
}

func applyDefaults(cfg *GameConfiguration) {
	if cfg.BiscaConf.TurnTimeoutSec <= 0 {
		cfg.BiscaConf.TurnTimeoutSec = 30
	}
	if cfg.BiscaConf.TrickDelayMs <= 0 {
		cfg.BiscaConf.TrickDelayMs = 1500
	}
	if cfg.BiscaConf.BotThinkDelayMs <= 0 {
		cfg.BiscaConf.BotThinkDelayMs = 900
	}
	if cfg.BiscaConf.DefaultWinsNeeded <= 0 {
		cfg.BiscaConf.DefaultWinsNeeded = 4
	}
	if cfg.StoreConf.SnapshotTTLMin <= 0 {
		cfg.StoreConf.SnapshotTTLMin = 120
	}
	if cfg.StoreConf.SyncIntervalSec <= 0 {
		cfg.StoreConf.SyncIntervalSec = 15
	}
	if cfg.StoreConf.HeartbeatTTLSec <= 0 {
		cfg.StoreConf.HeartbeatTTLSec = 30
	}
	if cfg.StoreConf.HeartbeatIntervalSec <= 0 {
		cfg.StoreConf.HeartbeatIntervalSec = 10
	}
	if cfg.StoreConf.WatchdogIntervalSec <= 0 {
		cfg.StoreConf.WatchdogIntervalSec = 30
	}
	if cfg.StoreConf.LivenessThresholdSec <= 0 {
		cfg.StoreConf.LivenessThresholdSec = 60
	}
	if cfg.StoreConf.MaxSessionAgeMin <= 0 {
		cfg.StoreConf.MaxSessionAgeMin = 120
	}
}
