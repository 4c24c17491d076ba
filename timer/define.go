package timer

import (
	"github.com/Sergeij2000/lanes/linda"
)

// Entry 一个在册定时器的快照
type Entry struct {
	Linda  linda.Linda
	Key    string
	When   float64 // 下次触发的 unix 秒
	Period float64 // 周期秒数, 0 表示一次性
}

// ctlMsg 控制消息, 一条消息就是一个完整动作:
// query 非空是查询; when>0 是登记; 其余情况注销
type ctlMsg struct {
	linda  linda.Linda
	key    string
	when   float64
	period float64
	query  chan []Entry
}
