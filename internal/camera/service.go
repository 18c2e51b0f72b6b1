package camera

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"teiten/internal/relay"
)

// Options はキャプチャループの動作設定
type Options struct {
	RetryInterval          time.Duration // キャプチャ失敗時のバックオフ間隔
	MaxConsecutiveFailures int           // プレースホルダ配信に切り替える連続失敗数
	Width                  int           // プレースホルダ画像の幅
	Height                 int           // プレースホルダ画像の高さ
}

// DefaultOptions は既定のキャプチャループ設定を返す
func DefaultOptions() Options {
	return Options{
		RetryInterval:          500 * time.Millisecond,
		MaxConsecutiveFailures: 20,
		Width:                  640,
		Height:                 480,
	}
}

// Service はキャプチャループを担う
// プロセス起動時に1度だけ開始され、専用ゴルーチン1本でソースから
// フレームを取得してリレーへ発行し続ける
type Service struct {
	source Source
	relay  *relay.Relay
	opts   Options

	mu                  sync.RWMutex
	status              Status
	consecutiveFailures int
	lastError           error

	placeholder []byte

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewService は新しいServiceを作成する
func NewService(source Source, r *relay.Relay, opts Options) *Service {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 20
	}
	if opts.Width <= 0 {
		opts.Width = 640
	}
	if opts.Height <= 0 {
		opts.Height = 480
	}

	return &Service{
		source: source,
		relay:  r,
		opts:   opts,
		status: StatusInactive,
		stopCh: make(chan struct{}),
	}
}

// Start はキャプチャループを開始する
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInactive {
		return fmt.Errorf("キャプチャループは既に開始されています")
	}

	// プレースホルダ画像を先に用意しておく
	if s.placeholder == nil {
		placeholder, err := PlaceholderJPEG(s.opts.Width, s.opts.Height)
		if err != nil {
			return fmt.Errorf("プレースホルダ画像の生成に失敗: %w", err)
		}
		s.placeholder = placeholder
	}

	s.wg.Add(1)
	go s.run(ctx)

	s.status = StatusActive
	return nil
}

// Stop はキャプチャループを停止する
func (s *Service) Stop(_ context.Context) error {
	s.mu.Lock()
	if s.status == StatusInactive {
		s.mu.Unlock()
		return nil // 既に停止している
	}

	// 停止シグナルを送信してゴルーチンの終了を待つ
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.source.Close(); err != nil {
		return fmt.Errorf("カメラソースのクローズに失敗: %w", err)
	}

	// 再開可能にするため新しいチャンネルを作成
	s.stopCh = make(chan struct{})
	s.status = StatusInactive
	return nil
}

// Status は現在の状態を返す
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// ConsecutiveFailures は現在の連続失敗回数を返す
func (s *Service) ConsecutiveFailures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consecutiveFailures
}

// LastError は最後に発生したキャプチャエラーを返す
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// run はキャプチャループの本体
// 失敗してもプロセスを終了させず、バックオフを挟んで無限にリトライする
func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		// Openは冪等なので、失敗後の再接続もこの呼び出しが担う
		if err := s.source.Open(ctx); err != nil {
			s.recordFailure(err)
			if !s.waitRetry(ctx) {
				return
			}
			continue
		}

		data, err := s.source.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.recordFailure(err)
			if !s.waitRetry(ctx) {
				return
			}
			continue
		}

		s.recordSuccess()
		s.relay.Publish(data)
	}
}

// recordFailure は失敗を記録し、閾値に達したらプレースホルダを配信する
func (s *Service) recordFailure(err error) {
	s.mu.Lock()
	s.consecutiveFailures++
	s.lastError = err
	s.status = StatusError
	count := s.consecutiveFailures
	placeholder := s.placeholder
	s.mu.Unlock()

	log.Printf("キャプチャに失敗しました (%d回連続): %v", count, err)

	// 閾値に達した時点でプレースホルダに切り替える
	// ループ自体は終了せずリトライを続ける
	if count == s.opts.MaxConsecutiveFailures && placeholder != nil {
		log.Printf("連続失敗が%d回に達しました。プレースホルダ画像を配信します", count)
		s.relay.Publish(placeholder)
	}
}

// recordSuccess は成功を記録し、失敗カウンタをリセットする
func (s *Service) recordSuccess() {
	s.mu.Lock()
	recovered := s.consecutiveFailures > 0
	count := s.consecutiveFailures
	s.consecutiveFailures = 0
	s.lastError = nil
	s.status = StatusActive
	s.mu.Unlock()

	if recovered {
		log.Printf("キャプチャが回復しました (連続失敗 %d回の後)", count)
	}
}

// waitRetry はバックオフ間隔だけ待機する
// 停止要求があった場合はfalseを返す
func (s *Service) waitRetry(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	case <-time.After(s.opts.RetryInterval):
		return true
	}
}
