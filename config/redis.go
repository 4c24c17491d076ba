package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	RedisMode_Single   = "single"
	RedisMode_Sentinel = "sentinel"
	RedisMode_Cluster  = "cluster"
)

// Open 按配置建redis客户端并ping通, 调用方负责Close
func (conf *RedisConfig) Open(ctx context.Context) (redis.UniversalClient, error) {
	addrs := strings.Split(conf.RedisAddr, ",")
	if len(addrs) < 1 || addrs[0] == "" {
		return nil, fmt.Errorf("redis addr invalid (%s)", conf.RedisAddr)
	}
	var cli redis.UniversalClient
	switch conf.RedisMode {
	case RedisMode_Cluster:
		cli = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: conf.RedisPassword,
		})
	case RedisMode_Sentinel:
		cli = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    conf.RedisMasterName,
			SentinelAddrs: addrs,
			Password:      conf.RedisPassword,
			DB:            conf.RedisDB,
		})
	default: // 默认single模式
		cli = redis.NewClient(&redis.Options{
			Addr:     addrs[0],
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
		})
	}
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		return nil, err
	}
	return cli, nil
}
