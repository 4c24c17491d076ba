package wire

import "encoding/binary"

// 帧格式: 4字节小端长度 + protobuf 载荷
const MsgLenSize = 4 //32bits uint32

// 单帧上限, 防御超长 length 把缓冲撑爆
const MaxFrameLen = 1 << 24

var byteOrder binary.ByteOrder = binary.LittleEndian

// 槽位操作名
const (
	OpPush = "push" // 入队, 满则等
	OpPop  = "pop"  // 出队一个
	OpPopN = "popn" // 出队 count 个, 不足 count 个不取
	OpPeek = "peek" // 读队头不消费
	OpSet  = "set"  // 原子替换整个槽位
	OpCap  = "cap"  // 设置槽位容量
	OpDump = "dump" // 按前缀导出槽位
	OpPing = "ping" // 探活
)

// Request 一次槽位操作; Timeout 毫秒, <0 表示无限等
type Request struct {
	Seq     uint32
	Op      string
	Linda   string
	Key     string
	Timeout int64
	Count   int64
	Vals    []any
}

type Response struct {
	Seq  uint32
	Ok   bool
	Err  string
	Vals []any
}
