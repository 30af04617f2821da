package core

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Pacer 兄弟请求之间的随机停顿
type Pacer struct {
	min, max int

	mu  sync.Mutex
	rng *rand.Rand

	pauses atomic.Int64
}

// NewPacer 停顿区间为[minSec, maxSec]秒, 取整数秒
func NewPacer(minSec, maxSec int) *Pacer {
	if minSec < 0 {
		minSec = 0
	}
	if maxSec < minSec {
		maxSec = minSec
	}
	return &Pacer{
		min: minSec,
		max: maxSec,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next 下一次停顿时长
func (p *Pacer) Next() time.Duration {
	if p.max == 0 {
		return 0
	}
	p.mu.Lock()
	n := p.min + p.rng.Intn(p.max-p.min+1)
	p.mu.Unlock()
	return time.Duration(n) * time.Second
}

// Pause 停顿, ctx取消时提前返回
func (p *Pacer) Pause(ctx context.Context) error {
	p.pauses.Add(1)
	d := p.Next()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pauses 已调用Pause的次数, 区间为0时也计数
func (p *Pacer) Pauses() int64 {
	return p.pauses.Load()
}
