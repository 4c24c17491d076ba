package timer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/Sergeij2000/lanes/errs"
	"github.com/Sergeij2000/lanes/linda"
	"github.com/Sergeij2000/lanes/util"
)

// 单测共用包级 worker, 各测试用自己的 linda 句柄隔离,
// 查询结果也只看自己句柄上的条目
func ownTimers(t *testing.T, l linda.Linda) []Entry {
	t.Helper()
	var out []Entry
	for _, e := range Timers() {
		if e.Linda == l {
			out = append(out, e)
		}
	}
	return out
}

func popStamp(t *testing.T, m *linda.Mem, key string) float64 {
	t.Helper()
	v, ok := m.Pop(2*time.Second, key)
	if !ok {
		t.Fatalf("timer %s did not fire", key)
	}
	f, good := v.(float64)
	if !good {
		t.Fatalf("stamp type %T", v)
	}
	return f
}

func TestSetValidation(t *testing.T) {
	m := linda.NewMem("val")
	defer m.Close()

	if err := Set(nil, "k", time.Time{}, 0); !errors.Is(err, errs.NilLinda) {
		t.Fatalf("nil linda: %v", err)
	}
	if err := Set(m, "", time.Time{}, 0); !errors.Is(err, errs.BadKey) {
		t.Fatalf("empty key: %v", err)
	}
	if err := Set(m, "k", time.Time{}, -time.Second); !errors.Is(err, errs.BadPeriod) {
		t.Fatalf("negative period: %v", err)
	}
	if err := SetAfter(m, "k", -time.Second, 0); !errors.Is(err, errs.BadTime) {
		t.Fatalf("negative delay: %v", err)
	}
	// 纪元及更早的时刻编码出来 when<=0, 和注销撞车, 必须拒掉
	if err := Set(m, "k", time.Unix(0, 0), 0); !errors.Is(err, errs.BadTime) {
		t.Fatalf("epoch at: %v", err)
	}
	if err := Set(m, "k", time.Unix(-100, 0), time.Second); !errors.Is(err, errs.BadTime) {
		t.Fatalf("pre-epoch at: %v", err)
	}
	if err := Clear(nil, "k"); !errors.Is(err, errs.NilLinda) {
		t.Fatalf("clear nil linda: %v", err)
	}
}

func TestOneShotFires(t *testing.T) {
	m := linda.NewMem("oneshot")
	defer m.Close()

	before := util.NowSecs()
	if err := SetAfter(m, "once", 50*time.Millisecond, 0); err != nil {
		t.Fatal(err)
	}
	stamp := popStamp(t, m, "once")
	if stamp < before || stamp > util.NowSecs() {
		t.Fatalf("stamp out of range: %f", stamp)
	}
	// 打完即除名: 触发一定先于后发的查询被处理
	if es := ownTimers(t, m); len(es) != 0 {
		t.Fatalf("one-shot still registered: %v", es)
	}
}

func TestPastDeadlineFiresImmediately(t *testing.T) {
	m := linda.NewMem("past")
	defer m.Close()

	if err := Set(m, "k", time.Now().Add(-time.Second), 0); err != nil {
		t.Fatal(err)
	}
	popStamp(t, m, "k")
}

func TestRepeatingFires(t *testing.T) {
	m := linda.NewMem("repeat")
	defer m.Close()

	const period = 40 * time.Millisecond
	if err := SetAfter(m, "tick", 30*time.Millisecond, period); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	var last float64
	for i := 0; i < 3; i++ {
		s := popStamp(t, m, "tick")
		if s <= last {
			t.Fatalf("stamps must advance: %f then %f", last, s)
		}
		last = s
	}
	// 三跳至少要两个周期的工夫
	if w := time.Since(start); w < 2*period*7/10 {
		t.Fatalf("3 fires arrived too fast: %v", w)
	}
	if err := Clear(m, "tick"); err != nil {
		t.Fatal(err)
	}
	// 注销即除名
	if es := ownTimers(t, m); len(es) != 0 {
		t.Fatalf("cleared timer still registered: %v", es)
	}
	// 注销后沉寂: 连续 100ms 没新戳就算停了 (周期才 40ms)
	stopped := false
	for i := 0; i < 50; i++ {
		if _, ok := m.Pop(100*time.Millisecond, "tick"); !ok {
			stopped = true
			break
		}
	}
	if !stopped {
		t.Fatal("cleared timer keeps firing")
	}
}

func TestZeroTimeStampsNow(t *testing.T) {
	m := linda.NewMem("zero")
	defer m.Close()

	before := util.NowSecs()
	if err := Set(m, "k", time.Time{}, 0); err != nil {
		t.Fatal(err)
	}
	// 零值时刻是同步动作, 返回时槽位里已有时间戳
	v, ok := m.Peek("k")
	if !ok {
		t.Fatal("no immediate stamp")
	}
	if s := v.(float64); s < before || s > util.NowSecs() {
		t.Fatalf("stamp out of range: %f", s)
	}
	// 不带周期就不登记
	if es := ownTimers(t, m); len(es) != 0 {
		t.Fatalf("unexpected registration: %v", es)
	}
}

func TestZeroTimeWithPeriod(t *testing.T) {
	m := linda.NewMem("zeroperiod")
	defer m.Close()

	if err := Set(m, "k", time.Time{}, 60*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	first := popStamp(t, m, "k") // 立刻戳的那次
	next := popStamp(t, m, "k")  // 一个周期后的
	if next <= first {
		t.Fatalf("stamps must advance: %f then %f", first, next)
	}
	es := ownTimers(t, m)
	if len(es) != 1 || es[0].Period != util.Dur2Secs(60*time.Millisecond) {
		t.Fatalf("registration: %v", es)
	}
	Clear(m, "k")
	if es := ownTimers(t, m); len(es) != 0 {
		t.Fatalf("cleared timer still registered: %v", es)
	}
}

func TestClearAbsent(t *testing.T) {
	m := linda.NewMem("clearabsent")
	defer m.Close()

	if err := Clear(m, "never-set"); err != nil {
		t.Fatal(err)
	}
}

func TestRearmReplaces(t *testing.T) {
	m := linda.NewMem("rearm")
	defer m.Close()

	at1 := time.Now().Add(time.Hour)
	at2 := time.Now().Add(2 * time.Hour)
	if err := Set(m, "k", at1, 0); err != nil {
		t.Fatal(err)
	}
	if err := Set(m, "k", at2, time.Minute); err != nil {
		t.Fatal(err)
	}
	es := ownTimers(t, m)
	if len(es) != 1 {
		t.Fatalf("rearm must replace: %v", es)
	}
	if d := es[0].When - util.Time2Secs(at2); d < -0.001 || d > 0.001 {
		t.Fatalf("old deadline survived: %f", d)
	}
	if es[0].Period != util.Dur2Secs(time.Minute) {
		t.Fatalf("period not updated: %f", es[0].Period)
	}
	Clear(m, "k")
}

func TestTimersOrdered(t *testing.T) {
	m := linda.NewMem("ordered")
	defer m.Close()

	Set(m, "later", time.Now().Add(2*time.Hour), 0)
	Set(m, "sooner", time.Now().Add(time.Hour), 0)
	es := ownTimers(t, m)
	if len(es) != 2 || es[0].Key != "sooner" || es[1].Key != "later" {
		t.Fatalf("order: %v", es)
	}
	Clear(m, "later")
	Clear(m, "sooner")
}

// Stop 是包级全局且不可逆, 放到子进程里验收, 不祸害同包其他用例
func TestStopClosesControl(t *testing.T) {
	if os.Getenv("LANES_TIMER_STOP_CHILD") == "1" {
		m := linda.NewMem("stopped")
		defer m.Close()
		if err := SetAfter(m, "k", time.Hour, 0); err != nil {
			fmt.Println("pre-stop set:", err)
			os.Exit(1)
		}
		Stop()
		// 停机后所有入口都报关店, 再也拉不起来
		if err := Set(m, "k", time.Now().Add(time.Hour), 0); !errors.Is(err, errs.Closed) {
			fmt.Println("set after stop:", err)
			os.Exit(1)
		}
		if err := SetAfter(m, "k", time.Minute, time.Second); !errors.Is(err, errs.Closed) {
			fmt.Println("setafter after stop:", err)
			os.Exit(1)
		}
		if err := Clear(m, "k"); !errors.Is(err, errs.Closed) {
			fmt.Println("clear after stop:", err)
			os.Exit(1)
		}
		if es := Timers(); es != nil {
			fmt.Println("query after stop:", es)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestStopClosesControl$")
	cmd.Env = append(os.Environ(), "LANES_TIMER_STOP_CHILD=1")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("stopped-state child failed: %v\n%s", err, out)
	}
}
