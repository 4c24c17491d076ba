package g

import (
	"runtime/debug"

	"github.com/Sergeij2000/lanes/mlog"
)

var panicHandler = func(name string, r any) {
	mlog.Errorf("go %s panic: %v\n%s", name, r, debug.Stack())
}

func SetPanicHandler(f func(name string, r any)) {
	if f != nil {
		panicHandler = f
	}
}

// Go 跑一个带兜底的协程, name 进日志
func Go(name string, fn func()) {
	go Exec(name, fn)
}

// Exec 当前协程内执行, panic 只记日志不外抛
func Exec(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			panicHandler(name, r)
		}
	}()
	fn()
}
