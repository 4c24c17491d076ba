package lock

import (
	"github.com/Sergeij2000/lanes/errs"
	"github.com/Sergeij2000/lanes/linda"
	"github.com/Sergeij2000/lanes/mlog"
)

// LockFunc 信号量句柄: m>0 占 m 个令牌, m<0 还 |m| 个;
// try=true 只试一次不等待, 返回是否成功
type LockFunc func(m int, try bool) bool

// GenLock 把槽位变成容量 n 的计数信号量。
// 令牌是真实入槽的值, 容量挡住超发; n=1 就是互斥锁。
// 同一 key 重复生成会清掉残留令牌, 持有中的令牌也会被清, 慎用。
func GenLock(l linda.Linda, key string, n int) (LockFunc, error) {
	if l == nil {
		return nil, errs.NilLinda
	}
	if key == "" {
		return nil, errs.BadKey
	}
	if n <= 0 {
		return nil, errs.BadCount.Printf("n=%d", n)
	}
	l.SetCapacity(key, n)
	l.Replace(key)
	return func(m int, try bool) bool {
		if m == 0 || m > n || m < -n {
			mlog.Warnf("lock %s: bad token delta %d, n=%d", key, m, n)
			return false
		}
		timeout := linda.Forever
		if try {
			timeout = 0
		}
		if m > 0 {
			vals := make([]any, m)
			for i := range vals {
				vals[i] = true
			}
			return l.Push(timeout, key, vals...)
		}
		_, ok := l.PopBatch(timeout, key, -m)
		return ok
	}, nil
}

// AtomicFunc 原子计数句柄, diff=0 等于只读当前值
type AtomicFunc func(diff float64) (float64, error)

// GenAtomic 把槽位变成跨进程的原子 float64。
// 槽位容量 2: 一个放值, 一个放门闩。操作者先把门闩 push 进去,
// 容量把第二个操作者挡在外面; 读改写完成后用 Replace 一把换新值,
// 门闩随之消失, 下一个操作者放行。
func GenAtomic(l linda.Linda, key string, initial float64) (AtomicFunc, error) {
	if l == nil {
		return nil, errs.NilLinda
	}
	if key == "" {
		return nil, errs.BadKey
	}
	l.SetCapacity(key, 2)
	l.Replace(key, initial)
	return func(diff float64) (float64, error) {
		if !l.Push(linda.Forever, key, true) {
			return 0, errs.Closed.Printf("atomic %s: guard push failed", key)
		}
		cur, _ := l.Peek(key)
		num, isNum := cur.(float64)
		if !isNum {
			// 槽位被外部写脏了, 清场避免后来者死锁在门闩上
			l.Replace(key)
			return 0, errs.AtomicState.Printf("key=%s holds %T", key, cur)
		}
		num += diff
		l.Replace(key, num)
		return num, nil
	}, nil
}
