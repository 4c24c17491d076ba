package util

import (
	"math"
	"time"
)

// 定时域统一使用 float64 的 unix 秒作为时间戳, 与槽位里写入的到期值同构

var timeOffset = time.Duration(0) // 时间偏移, 调试用

// SetTimeOffset 设置时间偏移量
func SetTimeOffset(newOffset time.Duration) {
	timeOffset = newOffset
}

// Now 获取当前时间
func Now() time.Time {
	now := time.Now()
	if timeOffset != 0 {
		now = now.Add(timeOffset)
	}
	return now
}

// NowSecs 当前 unix 秒
func NowSecs() float64 {
	return Time2Secs(Now())
}

func Time2Secs(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Secs2Time 2262 年前的时间戳都安全
func Secs2Time(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}

// Secs2Dur 超出 Duration 表示范围的秒数按两端饱和, 不回绕
func Secs2Dur(s float64) time.Duration {
	ns := s * float64(time.Second)
	if ns >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	if ns <= float64(math.MinInt64) {
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ns)
}

func Dur2Secs(d time.Duration) float64 {
	return d.Seconds()
}
