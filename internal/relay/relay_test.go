package relay

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

// TestLatestBeforePublish は未発行時に「フレームなし」が返ることをテストする
func TestLatestBeforePublish(t *testing.T) {
	r := New()

	frame, ok := r.Latest()
	if ok {
		t.Error("未発行の状態でフレームが返されました")
	}
	if frame.Seq != 0 {
		t.Errorf("未発行のシーケンス番号が0ではありません: %d", frame.Seq)
	}
	if r.Seq() != 0 {
		t.Errorf("Seq()が0を返しませんでした: %d", r.Seq())
	}
}

// TestPublishAndLatest は発行と読み取りの基本動作をテストする
func TestPublishAndLatest(t *testing.T) {
	r := New()

	r.Publish([]byte("frame-1"))

	frame, ok := r.Latest()
	if !ok {
		t.Fatal("発行後にフレームが取得できませんでした")
	}
	if frame.Seq != 1 {
		t.Errorf("シーケンス番号が一致しません: got %d, want 1", frame.Seq)
	}
	if !bytes.Equal(frame.Data, []byte("frame-1")) {
		t.Errorf("フレームデータが一致しません: %q", frame.Data)
	}
	if frame.CapturedAt.IsZero() {
		t.Error("発行時刻が設定されていません")
	}

	// 2枚目の発行で置き換えられること（キューされないこと）
	r.Publish([]byte("frame-2"))

	frame, ok = r.Latest()
	if !ok {
		t.Fatal("2回目の発行後にフレームが取得できませんでした")
	}
	if frame.Seq != 2 {
		t.Errorf("シーケンス番号が一致しません: got %d, want 2", frame.Seq)
	}
	if !bytes.Equal(frame.Data, []byte("frame-2")) {
		t.Errorf("最新フレームに置き換えられていません: %q", frame.Data)
	}
}

// TestPublishCopiesData は発行後に元バッファを書き換えても影響しないことをテストする
func TestPublishCopiesData(t *testing.T) {
	r := New()

	buf := []byte("original")
	r.Publish(buf)

	// 生産者がバッファを再利用した場合を再現
	copy(buf, "xxxxxxxx")

	frame, _ := r.Latest()
	if !bytes.Equal(frame.Data, []byte("original")) {
		t.Errorf("フレームが生産者のバッファを共有しています: %q", frame.Data)
	}
}

// TestNextReturnsNewFrame はNextが新しいフレームを即座に返すことをテストする
func TestNextReturnsNewFrame(t *testing.T) {
	r := New()
	r.Publish([]byte("frame-1"))

	frame, ok := r.Next(context.Background(), 0)
	if !ok {
		t.Fatal("新しいフレームがあるのにNextが失敗しました")
	}
	if frame.Seq != 1 {
		t.Errorf("シーケンス番号が一致しません: got %d, want 1", frame.Seq)
	}
}

// TestNextWakesOnPublish は待機中のNextがPublishで起こされることをテストする
func TestNextWakesOnPublish(t *testing.T) {
	r := New()
	r.Publish([]byte("frame-1"))

	resultCh := make(chan Frame, 1)
	go func() {
		// すでにシーケンス1を見ているので、次のフレームを待つ
		frame, _ := r.Next(context.Background(), 1)
		resultCh <- frame
	}()

	// 待機状態に入るまで少し待ってから発行
	time.Sleep(50 * time.Millisecond)
	r.Publish([]byte("frame-2"))

	select {
	case frame := <-resultCh:
		if frame.Seq != 2 {
			t.Errorf("シーケンス番号が一致しません: got %d, want 2", frame.Seq)
		}
		if !bytes.Equal(frame.Data, []byte("frame-2")) {
			t.Errorf("フレームデータが一致しません: %q", frame.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Nextが発行で起こされませんでした")
	}
}

// TestNextTimeout は新しいフレームが来ない場合に現在のフレームが返ることをテストする
func TestNextTimeout(t *testing.T) {
	r := New()
	r.Publish([]byte("frame-1"))

	start := time.Now()
	frame, ok := r.Next(context.Background(), 1)
	elapsed := time.Since(start)

	if !ok {
		t.Fatal("タイムアウト時に現在のフレームが返されませんでした")
	}
	if frame.Seq != 1 {
		t.Errorf("タイムアウト時のシーケンス番号が一致しません: got %d, want 1", frame.Seq)
	}
	if elapsed < DefaultNextWait {
		t.Errorf("待機時間が短すぎます: %v", elapsed)
	}
	if elapsed > DefaultNextWait+500*time.Millisecond {
		t.Errorf("待機時間が長すぎます: %v", elapsed)
	}
}

// TestNextBeforePublish は未発行時のNextがタイムアウト後にフレームなしを返すことをテストする
func TestNextBeforePublish(t *testing.T) {
	r := New()

	_, ok := r.Next(context.Background(), 0)
	if ok {
		t.Error("未発行の状態でフレームが返されました")
	}
}

// TestNextContextCancel はコンテキストキャンセルで待機が解除されることをテストする
func TestNextContextCancel(t *testing.T) {
	r := New()
	r.Publish([]byte("frame-1"))

	ctx, cancel := context.WithCancel(context.Background())

	resultCh := make(chan bool, 1)
	go func() {
		_, ok := r.Next(ctx, 1)
		resultCh <- ok
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case ok := <-resultCh:
		if ok {
			t.Error("キャンセル後にフレームが返されました")
		}
	case <-time.After(time.Second):
		t.Fatal("キャンセルでNextが解除されませんでした")
	}
}

// TestMonotonicSequence は同一読み取り側の観測シーケンスが単調非減少であることをテストする
func TestMonotonicSequence(t *testing.T) {
	r := New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 書き込み側: 高頻度で発行し続ける
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			r.Publish([]byte{byte(i)})
		}
		cancel()
	}()

	// 読み取り側: 複数クライアントが並行してポーリング
	const readers = 4
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastSeq uint64
			for ctx.Err() == nil {
				frame, ok := r.Next(ctx, lastSeq)
				if !ok {
					return
				}
				if frame.Seq < lastSeq {
					t.Errorf("シーケンスが逆行しました: %d -> %d", lastSeq, frame.Seq)
					return
				}
				lastSeq = frame.Seq
			}
		}()
	}

	wg.Wait()
}

// TestConcurrentPublishAndRead は並行アクセスでフレームが壊れないことをテストする
// 各フレームは同一バイトの繰り返しで構成し、混ざったバイト列を検出する
func TestConcurrentPublishAndRead(t *testing.T) {
	r := New()

	done := make(chan struct{})

	// 書き込み側
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			frame := bytes.Repeat([]byte{byte(i % 256)}, 128)
			r.Publish(frame)
		}
	}()

	// 読み取り側: フレーム全体が同一バイトであることを検証する
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				frame, ok := r.Latest()
				if !ok {
					continue
				}
				for _, b := range frame.Data {
					if b != frame.Data[0] {
						t.Error("部分的に書き換えられたフレームを観測しました")
						return
					}
				}
			}
		}()
	}

	wg.Wait()
}
