package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"teiten/internal/camera"
	"teiten/internal/config"
	"teiten/internal/relay"

	"github.com/gin-gonic/gin"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	relay      *relay.Relay
	capture    *camera.Service
	engine     *gin.Engine
	httpServer *http.Server

	clients atomic.Int64 // 接続中のストリーミングクライアント数

	// シャットダウン時に配信ループを終了させるためのチャンネル
	done     chan struct{}
	doneOnce sync.Once
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, r *relay.Relay, capture *camera.Service) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config:  cfg,
		relay:   r,
		capture: capture,
		engine:  engine,
		done:    make(chan struct{}),
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	// 閲覧用ページ
	s.engine.GET("/", s.handleIndex)

	// MJPEGストリーミングエンドポイント
	s.engine.GET("/stream", s.handleStream)

	// ヘルスチェックエンドポイント
	s.engine.GET("/health", s.handleHealth)

	// APIエンドポイント
	s.engine.GET("/api/status", s.handleStatus)
}

// Handler はテストから利用するためのハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ClientCount は接続中のストリーミングクライアント数を返す
func (s *Server) ClientCount() int64 {
	return s.clients.Load()
}

// Start はサーバーを起動する
// コンテキストのキャンセルかシグナル受信でグレースフルに停止する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	// 配信ループを終了させ、接続をアイドルに戻す
	s.doneOnce.Do(func() { close(s.done) })

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}
