package linda

import "time"

// Forever 阻塞操作不限时
const Forever = time.Duration(-1)

// Linda 带容量的多槽位队列空间, 定时器和锁原语都建在它上面。
// 阻塞操作都带 timeout: 0 只试一次, Forever 无限等;
// 超时前条件满足就成功, 返回 false 只代表超时或句柄已关。
type Linda interface {
	// Push 追加到槽位尾部, 全部放入或全部不放
	Push(timeout time.Duration, key string, vals ...any) bool
	// Pop 取走槽位头部一个值
	Pop(timeout time.Duration, key string) (any, bool)
	// PopBatch 原子取走 n 个, 不足 n 个时一个都不取
	PopBatch(timeout time.Duration, key string, n int) ([]any, bool)
	// Peek 读头部不消费, 空槽位返回 false
	Peek(key string) (any, bool)
	// Replace 原子替换槽位全部内容, 不受容量限制, 无值即清空
	Replace(key string, vals ...any)
	// SetCapacity 设置槽位容量, n<0 恢复不限; 已有值永不丢弃
	SetCapacity(key string, n int)
	// Ident 同一底层存储的两个句柄 Ident 相等
	Ident() string
	Close() error
}
