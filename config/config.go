package config

import (
	"encoding/json"
	"os"
)

var Config *AppConfig

type AppConfig struct {
	AppVersion     string `json:"app_version"`
	TimezoneOffset int    `json:"timezone_offset"` //时区偏移 秒
	LogConfig      `json:",inline"`
	ListenConfig   `json:",inline"`
	EtcdConfig     `json:",inline"`
	RedisConfig    `json:",inline"`
	LimitConfig    `json:",inline"`
	IsDebug        bool `json:"is_debug"`
	PprofPort      int  `json:"pprof_port"`
}

type LogConfig struct {
	LogPath   string `json:"log_path"`
	LogName   string `json:"log_name"`
	LogLevel  int    `json:"log_level"`
	LogStdOut bool   `json:"log_std_out"`
}

type ListenConfig struct {
	ListenAddr    string `json:"listen_addr"`    //本节点监听地址, 如 tcp://0.0.0.0:7100
	AdvertiseAddr string `json:"advertise_addr"` //注册到etcd供其他节点连接的地址
}

type EtcdConfig struct {
	EtcdEndpoints string `json:"etcd_endpoints"` //多个地址用,隔开; 为空则不注册
	EtcdLeaseTTL  int64  `json:"etcd_lease_ttl"` //节点租约时间 秒
	EtcdGroup     string `json:"etcd_group"`     //群组名称, 群组之间隔离
}

type RedisConfig struct {
	RedisMode       string `json:"redis_mode"`
	RedisAddr       string `json:"redis_addr"` // 多个地址用,隔开
	RedisMasterName string `json:"redis_master_name"`
	RedisPassword   string `json:"redis_password"`
	RedisDB         int    `json:"redis_db"`
}

type LimitConfig struct {
	MaxTimeoutMs int64 `json:"max_timeout_ms"` //单次阻塞操作的服务端上限 毫秒
}

func LoadConfig(configFile string, loadConfigFromEnv func(*AppConfig) error) error {
	Config = new(AppConfig)
	if len(configFile) == 0 {
		return loadConfigFromEnv(Config)
	}
	if err := loadConfigFromFile(configFile); err != nil {
		return err
	}
	if loadConfigFromEnv != nil {
		return loadConfigFromEnv(Config)
	}
	return nil
}

func loadConfigFromFile(configFile string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &Config)
}

func (conf *AppConfig) JsonFormat() string {
	if conf == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
