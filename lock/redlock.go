package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

var ErrFailedLock = errors.New("failed to acquire lock")

// RedLock 租约型跨进程互斥, 与 GenLock 不同, 持有者崩溃后锁随租约过期
type RedLock struct {
	rdb    redis.Cmdable
	entity string //请求锁的唯一实例
}

func NewRedLock(rdb redis.Cmdable, entity string) *RedLock {
	if entity == "" {
		entity = GeneLockEntity()
	}
	return &RedLock{rdb: rdb, entity: entity}
}

// Lock lockKey:分布式锁, expiry:锁超时时间, checkInterval:检测锁的频率
func (l *RedLock) Lock(lockKey string, expiry time.Duration, checkInterval time.Duration) error {
	lockTries := int(expiry/checkInterval) + 1
	for i := 0; i < lockTries; i++ {
		if i != 0 {
			<-time.After(checkInterval)
		}
		ret := l.rdb.SetNX(context.Background(), lockKey, l.entity, expiry)
		if ret.Err() != nil {
			return ret.Err()
		}
		if ret.Val() {
			return nil
		}
	}
	return ErrFailedLock
}

func (l *RedLock) TryLock(lockKey string, expiry time.Duration) bool {
	val, err := l.rdb.SetNX(context.Background(), lockKey, l.entity, expiry).Result()
	if err != nil {
		return false
	}
	return val
}

// 只有持有者能解开自己的锁
const unlockScriptLua = `
	if redis.call("get",KEYS[1]) == ARGV[1] then
		return redis.call("del",KEYS[1])
	else
		return 0
	end
`

var unlockScript = redis.NewScript(unlockScriptLua)

func (l *RedLock) UnLock(lockKey string) (bool, error) {
	val, err := unlockScript.Run(context.Background(), l.rdb, []string{lockKey}, l.entity).Result()
	if err != nil {
		return false, err
	}
	num, ok := val.(int64)
	if !ok {
		return false, errors.New("unlock script bad reply")
	}
	return num != 0, nil
}

// GeneLockEntity 生成请求锁的唯一实例
func GeneLockEntity() string {
	return xid.New().String()
}
