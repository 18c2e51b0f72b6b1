package main

import (
	"context"
	"log"

	"teiten/internal/camera"
	"teiten/internal/config"
	"teiten/internal/relay"
	"teiten/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	ctx := context.Background()

	// フレームリレーとカメラソースを作成
	frameRelay := relay.New()
	source := camera.NewLibcameraSource(cfg.Camera.Command, camera.Settings{
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
	})

	// キャプチャループを開始
	capture := camera.NewService(source, frameRelay, camera.Options{
		RetryInterval:          cfg.Camera.RetryInterval,
		MaxConsecutiveFailures: cfg.Camera.MaxConsecutiveFailures,
		Width:                  cfg.Camera.Width,
		Height:                 cfg.Camera.Height,
	})
	if err := capture.Start(ctx); err != nil {
		log.Fatalf("キャプチャループの開始に失敗しました: %v", err)
	}
	defer func() { _ = capture.Stop(ctx) }()

	// サーバーを起動
	srv := server.New(cfg, frameRelay, capture)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
