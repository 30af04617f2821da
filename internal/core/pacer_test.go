package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacer_Next(t *testing.T) {
	p := NewPacer(1, 3)
	for i := 0; i < 50; i++ {
		d := p.Next()
		if d < time.Second || d > 3*time.Second {
			t.Fatalf("停顿 %v 超出区间 [1s, 3s]", d)
		}
		if d%time.Second != 0 {
			t.Fatalf("停顿 %v 不是整数秒", d)
		}
	}
}

func TestPacer_ZeroRange(t *testing.T) {
	p := NewPacer(0, 0)
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := p.Pause(context.Background()); err != nil {
			t.Fatalf("意外错误: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("0秒区间不应停顿, 实际 %v", elapsed)
	}
	if p.Pauses() != 10 {
		t.Errorf("Pauses = %d, 期望 10", p.Pauses())
	}
}

func TestPacer_InvertedRange(t *testing.T) {
	p := NewPacer(2, 1)
	if d := p.Next(); d != 2*time.Second {
		t.Errorf("max小于min时应取min, 实际 %v", d)
	}
}

func TestPacer_Cancel(t *testing.T) {
	p := NewPacer(30, 30)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := p.Pause(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望context.Canceled, 实际 %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("取消后应立即返回")
	}
}
