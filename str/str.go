package str

import (
	"unsafe"
)

// 零拷贝转换, 拿到的一方不许改底层字节

func StrAsBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func BytesAsStr(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
