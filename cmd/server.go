// Package main はTeitenサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"teiten/internal/camera"
	"teiten/internal/config"
	"teiten/internal/relay"
	"teiten/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		host   = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port   = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		width  = flag.Int("width", 0, "カメラの画像幅 (デフォルト: 640)")
		height = flag.Int("height", 0, "カメラの画像高さ (デフォルト: 480)")
		fps    = flag.Int("fps", 0, "カメラのフレームレート (デフォルト: 30)")
		help   = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Teiten - 定点カメラストリーミングサーバー")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *width != 0 {
		cfg.Camera.Width = *width
	}
	if *height != 0 {
		cfg.Camera.Height = *height
	}
	if *fps != 0 {
		cfg.Camera.FPS = *fps
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定の検証に失敗しました: %v", err)
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
	log.Printf("Teiten サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
