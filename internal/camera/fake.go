package camera

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeSource はテスト用のSource実装
// 与えられたフレーム列を一定間隔で順番に返し、失敗の注入もできる
type FakeSource struct {
	mu       sync.Mutex
	frames   [][]byte
	idx      int
	interval time.Duration

	opened       bool
	terminated   bool // CloseForever後は再オープン不可
	failRemain   int  // 注入された連続失敗の残り回数
	openFailures int  // Openを失敗させる残り回数
	captureCount int
}

// NewFakeSource は新しいFakeSourceを作成する
// intervalはフレームごとの疑似キャプチャ時間
func NewFakeSource(frames [][]byte, interval time.Duration) *FakeSource {
	return &FakeSource{
		frames:   frames,
		interval: interval,
	}
}

// Name はソース名を返す
func (f *FakeSource) Name() string {
	return "fake"
}

// Open はソースを開く
func (f *FakeSource) Open(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.terminated {
		return ErrSourceClosed
	}
	if f.openFailures > 0 {
		f.openFailures--
		return fmt.Errorf("フェイク: オープンに失敗")
	}
	f.opened = true
	return nil
}

// Capture は次のフレームを返す
func (f *FakeSource) Capture(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	if f.terminated || !f.opened {
		f.mu.Unlock()
		return nil, ErrSourceClosed
	}
	if f.failRemain > 0 {
		f.failRemain--
		f.mu.Unlock()
		return nil, fmt.Errorf("フェイク: キャプチャに失敗")
	}
	frame := f.frames[f.idx%len(f.frames)]
	f.idx++
	f.captureCount++
	interval := f.interval
	f.mu.Unlock()

	if interval > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	out := make([]byte, len(frame))
	copy(out, frame)
	return out, nil
}

// Close はソースを閉じる（再オープン可能）
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = false
	return nil
}

// CloseForever はソースを恒久的に閉じる
// 以後のOpen/Captureはすべて失敗する
func (f *FakeSource) CloseForever() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = false
	f.terminated = true
}

// FailNext は次のn回のキャプチャを失敗させる
func (f *FakeSource) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRemain = n
}

// FailOpen は次のn回のオープンを失敗させる
func (f *FakeSource) FailOpen(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openFailures = n
}

// CaptureCount は成功したキャプチャ回数を返す
func (f *FakeSource) CaptureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captureCount
}
