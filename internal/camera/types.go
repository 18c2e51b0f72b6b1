package camera

import (
	"context"
	"errors"
)

// Status はキャプチャの動作状態を表す
type Status string

const (
	StatusInactive Status = "inactive" // キャプチャは停止中
	StatusActive   Status = "active"   // キャプチャは動作中
	StatusError    Status = "error"    // キャプチャでエラーが発生
)

// ErrSourceClosed はクローズ済みのソースへの操作を表すエラー
var ErrSourceClosed = errors.New("カメラソースは閉じられています")

// Source はカメラデバイスを抽象化するインターフェース
// デバイスハンドルはキャプチャループ（Service）が排他的に所有する
type Source interface {
	// Open はデバイスを開く
	// 既に開いている場合は何もせず成功を返す（冪等）
	Open(ctx context.Context) error

	// Capture は次のJPEGフレーム1枚を取得する
	// フレームが到着するまでブロックし、失敗時はエラーを返す
	Capture(ctx context.Context) ([]byte, error)

	// Close はデバイスを閉じる
	Close() error

	// Name はログ表示用のソース名を返す
	Name() string
}

// Settings はカメラの設定を表す
type Settings struct {
	Width  int // 画像幅
	Height int // 画像高さ
	FPS    int // フレームレート
}
