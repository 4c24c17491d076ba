package timer

import (
	"time"

	"github.com/Sergeij2000/lanes/errs"
	"github.com/Sergeij2000/lanes/linda"
	"github.com/Sergeij2000/lanes/mlog"
	"github.com/Sergeij2000/lanes/util"
)

// 查询兜底, 正常情况 worker 一直活着
const queryTimeout = 5 * time.Second

// Set 在 at 时刻把当前时间戳写进 l 的 key 槽位, period>0 则此后按周期重复。
// at 为零值表示立刻: 马上戳一次, 带周期就从现在起步, 不带周期等于注销。
// 同一 (槽位空间, key) 只有一个定时器, 重复 Set 顶掉旧的。
func Set(l linda.Linda, key string, at time.Time, period time.Duration) error {
	if l == nil {
		return errs.NilLinda
	}
	if key == "" {
		return errs.BadKey
	}
	if period < 0 {
		return errs.BadPeriod.Printf("period=%v", period)
	}
	pSecs := util.Dur2Secs(period)
	if at.IsZero() {
		now := util.NowSecs()
		l.Replace(key, now)
		if period > 0 {
			return send(&ctlMsg{linda: l, key: key, when: now + pSecs, period: pSecs})
		}
		return send(&ctlMsg{linda: l, key: key})
	}
	when := util.Time2Secs(at)
	// when<=0 在控制消息里是注销, 纪元以前的时刻不能混进去
	if when <= 0 {
		return errs.BadTime.Printf("at=%v", at)
	}
	return send(&ctlMsg{linda: l, key: key, when: when, period: pSecs})
}

// SetAfter 相对时间版 Set, d 为 0 等价于立刻
func SetAfter(l linda.Linda, key string, d, period time.Duration) error {
	if d < 0 {
		return errs.BadTime.Printf("delay=%v", d)
	}
	if d == 0 {
		return Set(l, key, time.Time{}, period)
	}
	return Set(l, key, util.Now().Add(d), period)
}

// Clear 注销定时器, 不碰槽位里已有的时间戳; 没登记过就是无操作
func Clear(l linda.Linda, key string) error {
	if l == nil {
		return errs.NilLinda
	}
	if key == "" {
		return errs.BadKey
	}
	return send(&ctlMsg{linda: l, key: key})
}

// Timers 在册定时器快照, 按到期先后排列
func Timers() []Entry {
	ch := make(chan []Entry, 1)
	if err := send(&ctlMsg{query: ch}); err != nil {
		return nil
	}
	select {
	case es := <-ch:
		return es
	case <-time.After(queryTimeout):
		mlog.Errorf("timer query timed out")
		return nil
	}
}

func send(m *ctlMsg) error {
	if !gateway().Push(linda.Forever, ctlKey, m) {
		return errs.Closed.Print("timer control")
	}
	return nil
}
