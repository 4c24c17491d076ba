package linda

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMemFifoOrder(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	if !m.Push(0, "k", 1, 2, 3) {
		t.Fatal("push failed")
	}
	for want := 1; want <= 3; want++ {
		v, ok := m.Pop(0, "k")
		if !ok || v != want {
			t.Fatalf("pop: %v %v, want %d", v, ok, want)
		}
	}
	if _, ok := m.Pop(0, "k"); ok {
		t.Fatal("pop on empty with zero timeout must fail")
	}
	if _, ok := m.Peek("k"); ok {
		t.Fatal("peek on empty must fail")
	}
}

func TestMemBlockingPop(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	start := time.Now()
	done := make(chan any, 1)
	go func() {
		v, ok := m.Pop(Forever, "k")
		if !ok {
			done <- nil
			return
		}
		done <- v
	}()
	time.Sleep(50 * time.Millisecond)
	m.Push(0, "k", "late")
	select {
	case v := <-done:
		if v != "late" {
			t.Fatalf("got %v", v)
		}
		if time.Since(start) < 40*time.Millisecond {
			t.Fatal("pop returned before push")
		}
	case <-time.After(time.Second):
		t.Fatal("blocked pop never woke")
	}
}

func TestMemPopTimeout(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	start := time.Now()
	if _, ok := m.Pop(80*time.Millisecond, "nothing"); ok {
		t.Fatal("pop should time out")
	}
	elapsed := time.Since(start)
	if elapsed < 70*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Fatalf("timeout drifted: %v", elapsed)
	}
}

func TestMemCapacity(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	m.SetCapacity("k", 2)
	if !m.Push(0, "k", "a", "b") {
		t.Fatal("push within capacity failed")
	}
	if m.Push(0, "k", "c") {
		t.Fatal("push over capacity must fail with zero timeout")
	}
	// 整批放不下就全不放
	if m.Push(0, "k") != true {
		t.Fatal("empty push is a no-op success")
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		m.Pop(0, "k")
	}()
	if !m.Push(time.Second, "k", "c") {
		t.Fatal("push should succeed after a pop frees room")
	}
	if v, _ := m.Pop(0, "k"); v != "b" {
		t.Fatalf("order broken: %v", v)
	}
}

func TestMemShrinkKeepsValues(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	m.Push(0, "k", 1, 2, 3)
	m.SetCapacity("k", 1)
	// 缩容不丢已有值
	for want := 1; want <= 3; want++ {
		v, ok := m.Pop(0, "k")
		if !ok || v != want {
			t.Fatalf("pop after shrink: %v %v", v, ok)
		}
	}
	if m.Push(0, "k", 9, 9) {
		t.Fatal("batch beyond capacity must fail")
	}
	if !m.Push(0, "k", 9) {
		t.Fatal("push within shrunk capacity failed")
	}
}

func TestMemReplace(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	m.SetCapacity("k", 1)
	m.Push(0, "k", "old")
	// 替换无视容量
	m.Replace("k", "x", "y", "z")
	if v, _ := m.Peek("k"); v != "x" {
		t.Fatalf("peek: %v", v)
	}
	vs, ok := m.PopBatch(0, "k", 3)
	if !ok || vs[0] != "x" || vs[2] != "z" {
		t.Fatalf("batch: %v %v", vs, ok)
	}
	// 无值即清空
	m.Push(0, "k", "gone")
	m.Replace("k")
	if _, ok := m.Peek("k"); ok {
		t.Fatal("replace with no values should clear")
	}
}

func TestMemReplaceWakesPopper(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	done := make(chan any, 1)
	go func() {
		v, _ := m.Pop(Forever, "k")
		done <- v
	}()
	time.Sleep(30 * time.Millisecond)
	m.Replace("k", 42.0)
	select {
	case v := <-done:
		if v != 42.0 {
			t.Fatalf("got %v", v)
		}
	case <-time.After(time.Second):
		t.Fatal("replace did not wake the popper")
	}
}

func TestMemPopBatchAtomic(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	m.Push(0, "k", 1, 2)
	if _, ok := m.PopBatch(50*time.Millisecond, "k", 3); ok {
		t.Fatal("short batch must not be delivered")
	}
	// 凑不齐时一个都不动
	if v, _ := m.Peek("k"); v != 1 {
		t.Fatalf("peek after failed batch: %v", v)
	}
	go func() {
		time.Sleep(30 * time.Millisecond)
		m.Push(0, "k", 3)
	}()
	vs, ok := m.PopBatch(time.Second, "k", 3)
	if !ok || len(vs) != 3 || vs[2] != 3 {
		t.Fatalf("batch: %v %v", vs, ok)
	}
}

func TestMemCloseUnblocks(t *testing.T) {
	m := NewMem("t")
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := m.Pop(Forever, "k"); ok {
				t.Error("pop must fail after close")
			}
		}()
	}
	time.Sleep(30 * time.Millisecond)
	m.Close()
	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("close did not unblock waiters")
	}
	if m.Push(0, "k", 1) {
		t.Fatal("push after close must fail")
	}
}

func TestMemDump(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	m.Push(0, "job.1", "a")
	m.Push(0, "job.2", "b", "c")
	m.Push(0, "other", "x")
	got := m.Dump("job.")
	if len(got) != 2 {
		t.Fatalf("dump keys: %v", got)
	}
	if len(got["job.2"]) != 2 || got["job.2"][1] != "c" {
		t.Fatalf("dump content: %v", got["job.2"])
	}
	all := m.Dump("")
	if len(all) != 3 {
		t.Fatalf("full dump: %v", all)
	}
}

func TestMemIdent(t *testing.T) {
	a := NewMem("x")
	b := NewMem("x")
	defer a.Close()
	defer b.Close()
	if a.Ident() == b.Ident() {
		t.Fatal("different stores must not share ident")
	}
	if a.Ident() != a.Ident() {
		t.Fatal("ident must be stable")
	}
	if !strings.HasPrefix(a.Ident(), "mem://x#") {
		t.Fatalf("ident format: %s", a.Ident())
	}
}

func TestMemConcurrentProducersConsumers(t *testing.T) {
	m := NewMem("t")
	defer m.Close()
	m.SetCapacity("k", 4)
	const total = 200
	var wg sync.WaitGroup
	sum := int64(0)
	var sumMu sync.Mutex
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < total/4; i++ {
				if !m.Push(Forever, "k", base+i) {
					t.Error("push failed")
					return
				}
			}
		}(p * 1000)
	}
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := int64(0)
			for i := 0; i < total/4; i++ {
				v, ok := m.Pop(Forever, "k")
				if !ok {
					t.Error("pop failed")
					return
				}
				local += int64(v.(int))
			}
			sumMu.Lock()
			sum += local
			sumMu.Unlock()
		}()
	}
	wg.Wait()
	want := int64(0)
	for p := 0; p < 4; p++ {
		for i := 0; i < total/4; i++ {
			want += int64(p*1000 + i)
		}
	}
	if sum != want {
		t.Fatalf("lost or duplicated values: got %d want %d", sum, want)
	}
}
