package linda

import (
	"context"
	"fmt"
	"time"

	"github.com/Sergeij2000/lanes/mlog"
	"github.com/Sergeij2000/lanes/wire"
	"github.com/redis/go-redis/v9"
)

var _ Linda = (*Redis)(nil)

// 默认的容量等待轮询间隔
const defaultCheckInterval = 50 * time.Millisecond

// Redis 跨进程实现, 槽位是 <ns>:s:<key> 的 list, 容量在 <ns>:cap 哈希里;
// 值按元素编码存储, pop 阻塞走 BLPOP, 其余组合操作用脚本保住原子性
type Redis struct {
	rdb           redis.Cmdable
	addr          string
	ns            string
	checkInterval time.Duration
}

// NewRedis 借用外部 client, Close 不会关它; addr 只参与 Ident
func NewRedis(rdb redis.Cmdable, addr, ns string) *Redis {
	return &Redis{
		rdb:           rdb,
		addr:          addr,
		ns:            ns,
		checkInterval: defaultCheckInterval,
	}
}

func (r *Redis) Ident() string {
	return fmt.Sprintf("redis://%s/%s", r.addr, r.ns)
}

// 带容量检查的整批入队, 放不下返回 0
const pushScriptLua = `
	local cap = redis.call("HGET", KEYS[2], ARGV[1])
	if cap then
		local len = redis.call("LLEN", KEYS[1])
		if len + #ARGV - 1 > tonumber(cap) then
			return 0
		end
	end
	for i = 2, #ARGV do
		redis.call("RPUSH", KEYS[1], ARGV[i])
	end
	return 1
`

// 凑不齐 n 个返回 nil, 凑齐了整批取走
const popNScriptLua = `
	local n = tonumber(ARGV[1])
	if redis.call("LLEN", KEYS[1]) < n then
		return nil
	end
	local vals = redis.call("LRANGE", KEYS[1], 0, n-1)
	redis.call("LTRIM", KEYS[1], n, -1)
	return vals
`

// 原子替换整个槽位
const replaceScriptLua = `
	redis.call("DEL", KEYS[1])
	for i = 1, #ARGV do
		redis.call("RPUSH", KEYS[1], ARGV[i])
	end
	return 1
`

var (
	pushScript    = redis.NewScript(pushScriptLua)
	popNScript    = redis.NewScript(popNScriptLua)
	replaceScript = redis.NewScript(replaceScriptLua)
)

func (r *Redis) Push(timeout time.Duration, key string, vals ...any) bool {
	if len(vals) == 0 {
		return true
	}
	args := make([]any, 0, len(vals)+1)
	args = append(args, key)
	for _, v := range vals {
		data, err := wire.EncodeValue(v)
		if err != nil {
			mlog.Errorf("linda redis push %s: %v", key, err)
			return false
		}
		args = append(args, data)
	}
	keys := []string{r.listKey(key), r.capKey()}
	deadline := opDeadline(timeout)
	for i := 0; ; i++ {
		if i != 0 {
			// 等别人消费出空位, 轮询频率同 redlock
			if !r.waitRetry(timeout, deadline) {
				return false
			}
		}
		val, err := pushScript.Run(context.Background(), r.rdb, keys, args...).Result()
		if err != nil {
			mlog.Errorf("linda redis push %s: %v", key, err)
			return false
		}
		if n, ok := val.(int64); ok && n == 1 {
			return true
		}
	}
}

func (r *Redis) Pop(timeout time.Duration, key string) (any, bool) {
	if timeout == 0 {
		val, err := r.rdb.LPop(context.Background(), r.listKey(key)).Result()
		if err != nil {
			if err != redis.Nil {
				mlog.Errorf("linda redis pop %s: %v", key, err)
			}
			return nil, false
		}
		return r.decodeVal(key, val)
	}
	// BLPOP 的 0 是无限等, 与本接口的 Forever 对上
	wait := timeout
	if timeout < 0 {
		wait = 0
	}
	ret, err := r.rdb.BLPop(context.Background(), wait, r.listKey(key)).Result()
	if err != nil {
		if err != redis.Nil {
			mlog.Errorf("linda redis blpop %s: %v", key, err)
		}
		return nil, false
	}
	if len(ret) != 2 {
		return nil, false
	}
	return r.decodeVal(key, ret[1])
}

func (r *Redis) PopBatch(timeout time.Duration, key string, n int) ([]any, bool) {
	if n <= 0 {
		return nil, false
	}
	keys := []string{r.listKey(key)}
	deadline := opDeadline(timeout)
	for i := 0; ; i++ {
		if i != 0 {
			if !r.waitRetry(timeout, deadline) {
				return nil, false
			}
		}
		val, err := popNScript.Run(context.Background(), r.rdb, keys, n).Result()
		if err != nil {
			if err == redis.Nil {
				continue // 还没凑齐
			}
			mlog.Errorf("linda redis popn %s: %v", key, err)
			return nil, false
		}
		raw, ok := val.([]any)
		if !ok {
			mlog.Errorf("linda redis popn %s: unexpected reply %T", key, val)
			return nil, false
		}
		out := make([]any, 0, len(raw))
		for _, e := range raw {
			s, _ := e.(string)
			v, ok := r.decodeVal(key, s)
			if !ok {
				return nil, false
			}
			out = append(out, v)
		}
		return out, true
	}
}

func (r *Redis) Peek(key string) (any, bool) {
	val, err := r.rdb.LIndex(context.Background(), r.listKey(key), 0).Result()
	if err != nil {
		if err != redis.Nil {
			mlog.Errorf("linda redis peek %s: %v", key, err)
		}
		return nil, false
	}
	return r.decodeVal(key, val)
}

func (r *Redis) Replace(key string, vals ...any) {
	args := make([]any, 0, len(vals))
	for _, v := range vals {
		data, err := wire.EncodeValue(v)
		if err != nil {
			mlog.Errorf("linda redis replace %s: %v", key, err)
			return
		}
		args = append(args, data)
	}
	if len(args) == 0 {
		if err := r.rdb.Del(context.Background(), r.listKey(key)).Err(); err != nil {
			mlog.Errorf("linda redis replace %s: %v", key, err)
		}
		return
	}
	if err := replaceScript.Run(context.Background(), r.rdb, []string{r.listKey(key)}, args...).Err(); err != nil {
		mlog.Errorf("linda redis replace %s: %v", key, err)
	}
}

func (r *Redis) SetCapacity(key string, n int) {
	ctx := context.Background()
	var err error
	if n < 0 {
		err = r.rdb.HDel(ctx, r.capKey(), key).Err()
	} else {
		err = r.rdb.HSet(ctx, r.capKey(), key, n).Err()
	}
	if err != nil {
		mlog.Errorf("linda redis setcap %s: %v", key, err)
	}
}

// Close 外部 client 由调用方管理
func (r *Redis) Close() error {
	return nil
}

func (r *Redis) listKey(key string) string {
	return r.ns + ":s:" + key
}

func (r *Redis) capKey() string {
	return r.ns + ":cap"
}

func (r *Redis) decodeVal(key, raw string) (any, bool) {
	v, err := wire.DecodeValueString(raw)
	if err != nil {
		mlog.Errorf("linda redis decode %s: %v", key, err)
		return nil, false
	}
	return v, true
}

// waitRetry 睡到下一次重试, 返回 false 表示超时窗口已尽;
// 剩余不足一个间隔时睡剩余量, 窗口最后的零头也要等完
func (r *Redis) waitRetry(timeout time.Duration, deadline time.Time) bool {
	if timeout == 0 {
		return false
	}
	wait := r.checkInterval
	if timeout > 0 {
		left := time.Until(deadline)
		if left <= 0 {
			return false
		}
		if left < wait {
			wait = left
		}
	}
	<-time.After(wait)
	return true
}
