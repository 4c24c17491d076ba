package util

import (
	"fmt"
	"runtime"
	"strings"
)

// GoroutineID 调试日志用, 有栈解析开销, 别放热路径
func GoroutineID() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	idField := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
	id := 0
	fmt.Sscanf(idField, "%d", &id)
	return id
}
