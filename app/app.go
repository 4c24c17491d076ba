package app

import (
	"log"
	"os"
	"os/signal"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/Sergeij2000/lanes/mlog"
)

// 节点全局状态
const (
	AppStateNone = iota // 未开始或已停止
	AppStateInit        // 正在初始化中
	AppStateRun         // 正在运行中
	AppStateStop        // 正在停止中
)

// 单例
var defaultApp = new(App)

type Module interface {
	OnInit() error // 初始化
	Destroy()      // 销毁, 要让Run返回
	Run()          // 启动, 阻塞到被Destroy
	Name() string  // 名字
}

// mod 模块
type mod struct {
	mi Module
}

// DefaultApp 默认单例
func DefaultApp() *App {
	return defaultApp
}

// App 中的 modules 在初始化(通过 Run) 之后不能变更
// App API 只有 GetState 和 Stop 是 goroutine safe 的
type App struct {
	mods  []*mod
	state int32
	sig   chan os.Signal
	wg    *sync.WaitGroup
}

func (app *App) setState(s int32) {
	atomic.StoreInt32(&app.state, s)
}

func (app *App) GetState() int32 {
	return atomic.LoadInt32(&app.state)
}

// start 初始化app
func (app *App) start(mods ...Module) {
	// 单个app不能启动两次
	if app.GetState() != AppStateNone {
		log.Fatal("app mods cannot start twice")
	}
	if len(mods) == 0 {
		return
	}
	if len(app.mods) != 0 {
		log.Fatal("app mods cannot start twice")
	}
	mlog.Info("app starting up")
	// register
	for _, mi := range mods {
		m := new(mod)
		m.mi = mi
		app.mods = append(app.mods, m)
	}
	app.setState(AppStateInit)
	// 模块初始化
	for _, m := range app.mods {
		mi := m.mi
		if err := mi.OnInit(); err != nil {
			log.Fatalf("module %v init error %v", reflect.TypeOf(mi), err)
		}
	}
	// 模块启动
	app.wg = &sync.WaitGroup{}
	for _, m := range app.mods {
		app.wg.Add(1)
		go run(m, app.wg)
	}
	app.setState(AppStateRun)
	mlog.Info("app started")
}

func (app *App) stop() {
	if app.GetState() == AppStateStop {
		return
	}
	mlog.Info("app stop begin")
	app.setState(AppStateStop)
	// 先进后出
	for i := len(app.mods) - 1; i >= 0; i-- {
		m := app.mods[i]
		mlog.Infof("app stop module %s", m.mi.Name())
		destroy(m)
	}
	app.wg.Wait()
	app.setState(AppStateNone)
	mlog.Info("app stoped")
}

func run(m *mod, wg *sync.WaitGroup) {
	defer wg.Done()
	m.mi.Run()
}

func destroy(m *mod) {
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("%s module destroy panic: %v\n%s", m.mi.Name(), r, debug.Stack())
		}
	}()

	m.mi.Destroy()
}

// Run 启动全部模块后守在信号上, SIGHUP之外的信号触发停机
func (app *App) Run(mods ...Module) {
	app.sig = make(chan os.Signal, 1)
	app.start(mods...)
	for {
		signal.Notify(app.sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		sig := <-app.sig
		mlog.Infof("server closing down (signal: %v)", sig)
		if sig != syscall.SIGHUP {
			break
		}
	}

	app.stop()
}

// Stop 只能在Run之后调用
func (app *App) Stop() {
	app.sig <- syscall.SIGTERM
}
