package service

import "time"

// Clock 服务端时钟，时间线时间戳和逾期推导都只信任它
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

// Now 当前UTC时间
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
