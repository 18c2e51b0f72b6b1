package camera

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// captureTimeout はストリームからフレーム1枚が届くまでの待機上限
const captureTimeout = 5 * time.Second

// LibcameraSource はrpicam-vidストリームを使うSource実装
type LibcameraSource struct {
	capturer *LibcameraCapturer

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	frameChan chan []byte
	errorChan chan error
}

// NewLibcameraSource は新しいLibcameraSourceを作成する
func NewLibcameraSource(command string, settings Settings) *LibcameraSource {
	return &LibcameraSource{
		capturer: NewLibcameraCapturer(command, settings.Width, settings.Height, settings.FPS),
	}
}

// Name はソース名を返す
func (s *LibcameraSource) Name() string {
	return "libcamera"
}

// Open はrpicam-vidサブプロセスを起動してストリームを開始する
// 既に動作中の場合は何もしない
func (s *LibcameraSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if !s.capturer.IsAvailable(ctx) {
		return fmt.Errorf("カメラが利用できません")
	}

	// ストリームの寿命はOpenの呼び出しコンテキストと切り離す
	streamCtx, cancel := context.WithCancel(context.Background())

	s.cancel = cancel
	s.frameChan = make(chan []byte, 10)
	s.errorChan = make(chan error, 5)
	s.running = true

	s.capturer.StartStream(streamCtx, s.frameChan, s.errorChan)
	return nil
}

// Capture は次のフレーム1枚が届くまで待って返す
func (s *LibcameraSource) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	running, frameChan, errorChan := s.running, s.frameChan, s.errorChan
	s.mu.Unlock()

	if !running {
		return nil, ErrSourceClosed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case frame := <-frameChan:
		return frame, nil

	case err := <-errorChan:
		// ストリームが壊れたので次のOpenで再起動させる
		s.markStopped()
		return nil, err

	case <-time.After(captureTimeout):
		s.markStopped()
		return nil, fmt.Errorf("フレーム取得がタイムアウトしました")
	}
}

// Close はストリームを停止する
func (s *LibcameraSource) Close() error {
	s.markStopped()
	return nil
}

// markStopped はストリームを停止状態にする
func (s *LibcameraSource) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
}
