package app

import (
	"sync"
	"testing"
	"time"
)

type fakeMod struct {
	name string
	note func(string)
	stop chan struct{}
	bad  bool // Destroy里炸
}

func (m *fakeMod) OnInit() error { m.note("init " + m.name); return nil }
func (m *fakeMod) Run()          { <-m.stop }
func (m *fakeMod) Name() string  { return m.name }
func (m *fakeMod) Destroy() {
	m.note("destroy " + m.name)
	close(m.stop)
	if m.bad {
		panic("boom")
	}
}

func waitState(t *testing.T, a *App, want int32) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if a.GetState() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("state never reached %d, at %d", want, a.GetState())
}

func TestAppLifecycle(t *testing.T) {
	a := new(App)
	var mu sync.Mutex
	var order []string
	note := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}
	m1 := &fakeMod{name: "one", note: note, stop: make(chan struct{})}
	m2 := &fakeMod{name: "two", note: note, stop: make(chan struct{})}

	done := make(chan struct{})
	go func() {
		a.Run(m1, m2)
		close(done)
	}()
	waitState(t, a, AppStateRun)
	a.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
	if a.GetState() != AppStateNone {
		t.Fatalf("state after stop: %d", a.GetState())
	}
	mu.Lock()
	defer mu.Unlock()
	want := []string{"init one", "init two", "destroy two", "destroy one"}
	if len(order) != len(want) {
		t.Fatalf("order: %v", order)
	}
	// 初始化按注册序, 销毁反着来
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d]=%s want %s", i, order[i], want[i])
		}
	}
}

func TestAppDestroyPanicIsolated(t *testing.T) {
	a := new(App)
	var mu sync.Mutex
	var order []string
	note := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}
	good := &fakeMod{name: "good", note: note, stop: make(chan struct{})}
	bad := &fakeMod{name: "bad", note: note, stop: make(chan struct{}), bad: true}

	done := make(chan struct{})
	go func() {
		a.Run(good, bad)
		close(done)
	}()
	waitState(t, a, AppStateRun)
	a.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("panic in destroy must not wedge the app")
	}
	mu.Lock()
	defer mu.Unlock()
	// bad先销毁且panic, good仍要轮到
	if order[len(order)-1] != "destroy good" {
		t.Fatalf("order: %v", order)
	}
}
