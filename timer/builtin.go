package timer

import (
	"sync"

	"github.com/Sergeij2000/lanes/g"
	"github.com/Sergeij2000/lanes/linda"
)

var (
	ctlOnce sync.Once
	ctl     *linda.Mem
)

const (
	// 控制消息槽位
	ctlKey = "ctl"
	// 跳板槽位, 容量 1: 谁塞进去谁负责拉起 worker, 后来者塞不进
	bootKey = "boot"
)

func ensureCtl() *linda.Mem {
	ctlOnce.Do(func() {
		ctl = linda.NewMem("timer.ctl")
		ctl.SetCapacity(bootKey, 1)
	})
	return ctl
}

// gateway 返回控制槽位, 第一次用到时抢跳板把 worker 拉起来
func gateway() *linda.Mem {
	c := ensureCtl()
	if c.Push(0, bootKey, true) {
		g.Go("timer worker", newWorker(c).run)
	}
	return c
}

// Stop 关掉控制通道: worker 退出, 在册定时器作废,
// 之后所有定时调用都返回失败。进程退出前的收尾用, 不可逆。
func Stop() {
	ensureCtl().Close()
}
