package timer

import (
	"time"

	"github.com/Sergeij2000/lanes/ds/skiplist"
	"github.com/Sergeij2000/lanes/g"
	"github.com/Sergeij2000/lanes/linda"
	"github.com/Sergeij2000/lanes/mlog"
	"github.com/Sergeij2000/lanes/util"
)

// _TimerRef 在册定时器, 到期索引按 (when, seq) 排序, seq 保证同刻不撞
type _TimerRef struct {
	ent    *_Entry
	key    string
	when   float64
	period float64
	seq    uint64
}

func (t *_TimerRef) Compare(o *_TimerRef) int {
	if t.when < o.when {
		return -1
	} else if t.when > o.when {
		return 1
	}
	if t.seq < o.seq {
		return -1
	} else if t.seq > o.seq {
		return 1
	}
	return 0
}

// _Entry 同一个槽位空间下的全部定时器, 键是槽位 key
type _Entry struct {
	l      linda.Linda
	timers map[string]*_TimerRef
}

// worker 单协程独占全部状态, 在控制槽位的限时 pop 里睡觉:
// 有消息先处理消息, 睡到点了就触发到期定时器
type worker struct {
	ctl    *linda.Mem
	reg    map[string]*_Entry // 按 Ident 归并, 两个句柄指同一存储就进同一条
	idx    *skiplist.SkipList[*_TimerRef]
	genSeq uint64
}

func newWorker(ctl *linda.Mem) *worker {
	return &worker{
		ctl: ctl,
		reg: make(map[string]*_Entry),
		idx: skiplist.NewSkipList[*_TimerRef](),
	}
}

func (w *worker) run() {
	mlog.Infof("timer worker up")
	for {
		alive := true
		// 单步兜底, 一条坏消息毒不死整个 worker
		g.Exec("timer step", func() {
			alive = w.step()
		})
		if !alive {
			mlog.Infof("timer worker down, %d timers dropped", w.idx.Len())
			return
		}
	}
}

func (w *worker) step() bool {
	v, ok := w.ctl.Pop(w.nextWait(), ctlKey)
	if !ok {
		if w.ctl.Closed() {
			return false
		}
		w.fire()
		return true
	}
	msg, good := v.(*ctlMsg)
	if !good {
		mlog.Warnf("timer worker: drop message %T", v)
		return true
	}
	switch {
	case msg.query != nil:
		msg.query <- w.snapshot()
	case msg.when > 0:
		w.arm(msg)
	default:
		w.disarm(msg)
	}
	// 顺手把已到期的放掉, 过期登记立即触发
	w.fire()
	return true
}

// nextWait 睡到最近一个到期点, 没有定时器就睡到有消息
func (w *worker) nextWait() time.Duration {
	ref, ok := w.idx.First()
	if !ok {
		return linda.Forever
	}
	d := util.Secs2Dur(ref.when - util.NowSecs())
	if d < 0 {
		return 0
	}
	return d
}

func (w *worker) arm(m *ctlMsg) {
	id := m.linda.Ident()
	ent := w.reg[id]
	if ent == nil {
		ent = &_Entry{l: m.linda, timers: make(map[string]*_TimerRef)}
		w.reg[id] = ent
	}
	// 同槽位重复登记, 新的顶掉旧的
	if old := ent.timers[m.key]; old != nil {
		w.idx.Remove(old)
	}
	w.genSeq++
	ref := &_TimerRef{ent: ent, key: m.key, when: m.when, period: m.period, seq: w.genSeq}
	ent.timers[m.key] = ref
	w.idx.Insert(ref)
	mlog.Debugf("timer arm %s %s when=%.3f period=%.3f", id, m.key, m.when, m.period)
}

func (w *worker) disarm(m *ctlMsg) {
	id := m.linda.Ident()
	ent := w.reg[id]
	if ent == nil {
		return // 注销不存在的定时器是无操作
	}
	if old := ent.timers[m.key]; old != nil {
		w.idx.Remove(old)
		delete(ent.timers, m.key)
		mlog.Debugf("timer clear %s %s", id, m.key)
	}
	w.prune(ent)
}

func (w *worker) fire() {
	now := util.NowSecs()
	for {
		ref, ok := w.idx.First()
		if !ok || ref.when > now {
			return
		}
		w.idx.Remove(ref)
		// 到期戳是覆盖写, 槽位里永远只有最新一次
		ref.ent.l.Replace(ref.key, now)
		if ref.period > 0 {
			// 落后多个周期只补一跳, 下一次必须在未来
			for ref.when <= now {
				ref.when += ref.period
			}
			w.idx.Insert(ref)
		} else {
			delete(ref.ent.timers, ref.key)
			w.prune(ref.ent)
		}
	}
}

// prune 空条目及时放掉, 不拖住人家的句柄
func (w *worker) prune(ent *_Entry) {
	if len(ent.timers) == 0 {
		delete(w.reg, ent.l.Ident())
	}
}

// snapshot 按到期先后导出
func (w *worker) snapshot() []Entry {
	out := make([]Entry, 0, w.idx.Len())
	w.idx.Foreach(func(ref *_TimerRef) bool {
		out = append(out, Entry{Linda: ref.ent.l, Key: ref.key, When: ref.when, Period: ref.period})
		return true
	})
	return out
}
