package relay

import (
	"context"
	"sync"
	"time"
)

// DefaultNextWait はNextが新しいフレームを待つ最大時間
// 書き込みが止まってもクライアントのゴルーチンを長時間拘束しないための上限
const DefaultNextWait = 1 * time.Second

// Frame はエンコード済みの画像1枚を表す
// Dataは発行後に変更されない（イミュータブル）
type Frame struct {
	Data       []byte    // JPEGバイト列
	Seq        uint64    // 単調増加のシーケンス番号（1から開始）
	CapturedAt time.Time // 発行された時刻
}

// Relay は最新フレーム1枚を保持する中継点
// キャプチャループがPublishし、各クライアントがLatest/Nextで読み取る
type Relay struct {
	mu      sync.RWMutex
	frame   Frame
	has     bool
	updated chan struct{} // Publishごとにクローズされ、新しいチャンネルに置き換わる
}

// New は新しいRelayを作成する（フレームなしの状態で初期化）
func New() *Relay {
	return &Relay{
		updated: make(chan struct{}),
	}
}

// Publish は現在のフレームを置き換え、待機中の読み取り側を起こす
// 渡されたバイト列はコピーされるため、呼び出し側はバッファを再利用してよい
func (r *Relay) Publish(data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)

	r.mu.Lock()
	r.frame = Frame{
		Data:       buf,
		Seq:        r.frame.Seq + 1,
		CapturedAt: time.Now(),
	}
	r.has = true

	// 待機側への通知（クローズによるブロードキャスト）
	close(r.updated)
	r.updated = make(chan struct{})
	r.mu.Unlock()
}

// Latest は現在のフレームを返す
// まだ一度もPublishされていない場合はfalseを返す
func (r *Relay) Latest() (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frame, r.has
}

// Seq は現在のシーケンス番号を返す（未発行の場合は0）
func (r *Relay) Seq() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frame.Seq
}

// Next はlastSeqより新しいフレームを返す
// 新しいフレームがまだない場合はDefaultNextWaitを上限に待機し、
// タイムアウト時は現在のフレームを（同じシーケンス番号のまま）返す。
// 再送するかどうかは呼び出し側が判断する。
// コンテキストがキャンセルされた場合はfalseを返す
func (r *Relay) Next(ctx context.Context, lastSeq uint64) (Frame, bool) {
	timer := time.NewTimer(DefaultNextWait)
	defer timer.Stop()

	for {
		r.mu.RLock()
		frame, has, updated := r.frame, r.has, r.updated
		r.mu.RUnlock()

		// lastSeqより新しいフレームがあれば即座に返す
		if has && frame.Seq > lastSeq {
			return frame, true
		}

		select {
		case <-ctx.Done():
			return Frame{}, false
		case <-updated:
			// 新しいフレームが発行されたので読み直す
		case <-timer.C:
			// 待機上限に達した。現在のフレームをそのまま返す
			return frame, has
		}
	}
}
