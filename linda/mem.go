package linda

import (
	"fmt"
	"sync"
	"time"

	"github.com/Sergeij2000/lanes/ds/fifo"
	radix "github.com/armon/go-radix"
)

var _ Linda = (*Mem)(nil)

// Mem 进程内实现, 一把锁罩全部槽位, 等待走每槽位的广播 chan
type Mem struct {
	name   string
	mu     sync.Mutex
	slots  map[string]*slot
	keys   *radix.Tree // Dump 的前缀索引, 与 slots 同步维护
	closed bool
}

type slot struct {
	q       *fifo.Queue[any]
	cap     int // -1 不限
	wake    chan struct{}
	waiters int
}

func NewMem(name string) *Mem {
	return &Mem{
		name:  name,
		slots: make(map[string]*slot),
		keys:  radix.New(),
	}
}

func (m *Mem) Ident() string {
	return fmt.Sprintf("mem://%s#%p", m.name, m)
}

func (m *Mem) Push(timeout time.Duration, key string, vals ...any) bool {
	if len(vals) == 0 {
		return true
	}
	deadline := opDeadline(timeout)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	s := m.getSlot(key)
	for {
		if s.roomFor(len(vals)) {
			for _, v := range vals {
				s.q.Push(v)
			}
			s.broadcast()
			return true
		}
		if !m.waitSlot(s, timeout, deadline) {
			m.maybeDrop(key, s)
			return false
		}
	}
}

func (m *Mem) Pop(timeout time.Duration, key string) (any, bool) {
	deadline := opDeadline(timeout)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false
	}
	s := m.getSlot(key)
	for {
		if v, ok := s.q.Pop(); ok {
			s.broadcast()
			m.maybeDrop(key, s)
			return v, true
		}
		if !m.waitSlot(s, timeout, deadline) {
			m.maybeDrop(key, s)
			return nil, false
		}
	}
}

func (m *Mem) PopBatch(timeout time.Duration, key string, n int) ([]any, bool) {
	if n <= 0 {
		return nil, false
	}
	deadline := opDeadline(timeout)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false
	}
	s := m.getSlot(key)
	for {
		// 不足 n 个整批不取
		if vs, ok := s.q.PopN(n); ok {
			s.broadcast()
			m.maybeDrop(key, s)
			return vs, true
		}
		if !m.waitSlot(s, timeout, deadline) {
			m.maybeDrop(key, s)
			return nil, false
		}
	}
}

func (m *Mem) Peek(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		return nil, false
	}
	return s.q.First()
}

func (m *Mem) Replace(key string, vals ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if len(vals) == 0 {
		if s, ok := m.slots[key]; ok {
			s.q.Clear()
			s.broadcast()
			m.maybeDrop(key, s)
		}
		return
	}
	s := m.getSlot(key)
	s.q.Clear()
	// 替换不受容量限制
	for _, v := range vals {
		s.q.Push(v)
	}
	s.broadcast()
}

func (m *Mem) SetCapacity(key string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if n < 0 {
		if s, ok := m.slots[key]; ok {
			s.cap = -1
			s.broadcast()
			m.maybeDrop(key, s)
		}
		return
	}
	s := m.getSlot(key)
	s.cap = n
	// 已有值多于新容量也不丢, 只挡后续 push
	s.broadcast()
}

// Close 唤醒全部等待者, 后续操作直接失败
func (m *Mem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, s := range m.slots {
		s.broadcast()
	}
	return nil
}

// Closed 句柄是否已关
func (m *Mem) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Dump 按前缀导出槽位内容快照, 调试与运维用
func (m *Mem) Dump(prefix string) map[string][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]any)
	m.keys.WalkPrefix(prefix, func(k string, v any) bool {
		s := v.(*slot)
		vals := make([]any, 0, s.q.Len())
		s.q.Range(func(e any) bool {
			vals = append(vals, e)
			return true
		})
		out[k] = vals
		return false
	})
	return out
}

func (m *Mem) getSlot(key string) *slot {
	s, ok := m.slots[key]
	if !ok {
		s = &slot{
			q:    fifo.New[any](0),
			cap:  -1,
			wake: make(chan struct{}),
		}
		m.slots[key] = s
		m.keys.Insert(key, s)
	}
	return s
}

// maybeDrop 无值无容量无等待者的槽位直接回收, 让长跑进程不攒死键
func (m *Mem) maybeDrop(key string, s *slot) {
	if s.q.IsEmpty() && s.cap < 0 && s.waiters == 0 {
		delete(m.slots, key)
		m.keys.Delete(key)
	}
}

func (s *slot) roomFor(n int) bool {
	return s.cap < 0 || s.q.Len()+n <= s.cap
}

// broadcast 关旧换新, 等待者全部放行
func (s *slot) broadcast() {
	close(s.wake)
	s.wake = make(chan struct{})
}

// waitSlot 解锁等槽位变化, 返回 false 表示超时或句柄已关;
// 返回后调用方重新检查条件, 虚假唤醒无害
func (m *Mem) waitSlot(s *slot, timeout time.Duration, deadline time.Time) bool {
	if timeout == 0 {
		return false
	}
	ch := s.wake
	s.waiters++
	m.mu.Unlock()
	ok := true
	if timeout < 0 {
		<-ch
	} else {
		d := time.Until(deadline)
		if d <= 0 {
			ok = false
		} else {
			t := time.NewTimer(d)
			select {
			case <-ch:
				t.Stop()
			case <-t.C:
				ok = false
			}
		}
	}
	m.mu.Lock()
	s.waiters--
	return ok && !m.closed
}

func opDeadline(timeout time.Duration) time.Time {
	if timeout > 0 {
		return time.Now().Add(timeout)
	}
	return time.Time{}
}
