package config

import (
	"fmt"
	"os"
	"time"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig
	Camera CameraConfig
	Stream StreamConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string // リッスンするホスト
	Port int    // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration // 読み込みタイムアウト
	WriteTimeout time.Duration // 書き込みタイムアウト
}

// CameraConfig はカメラとキャプチャループの設定
type CameraConfig struct {
	Command string // rpicam系コマンドのプレフィックス（rpicam / libcamera）
	Width   int    // 画像幅
	Height  int    // 画像高さ
	FPS     int    // キャプチャのフレームレート

	// キャプチャ失敗時の挙動
	RetryInterval          time.Duration // リトライ間隔
	MaxConsecutiveFailures int           // プレースホルダ配信までの連続失敗数
}

// StreamConfig はクライアントへの配信設定
type StreamConfig struct {
	MaxFPS int // クライアント1接続あたりの送信レート上限
}

// Load は設定を読み込む
// 環境変数があればデフォルト値を上書きする
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("PORT", 8080),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			Command:                getEnvOrDefault("CAMERA_COMMAND", "rpicam"),
			Width:                  getEnvAsIntOrDefault("CAMERA_WIDTH", 640),
			Height:                 getEnvAsIntOrDefault("CAMERA_HEIGHT", 480),
			FPS:                    getEnvAsIntOrDefault("CAMERA_FPS", 30),
			RetryInterval:          getEnvAsDurationOrDefault("CAPTURE_RETRY_INTERVAL", 500*time.Millisecond),
			MaxConsecutiveFailures: getEnvAsIntOrDefault("CAPTURE_MAX_FAILURES", 20),
		},
		Stream: StreamConfig{
			MaxFPS: getEnvAsIntOrDefault("STREAM_MAX_FPS", 30),
		},
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// カメラ設定の検証
	if c.Camera.FPS <= 0 || c.Camera.FPS > 120 {
		return fmt.Errorf("無効なカメラFPS: %d", c.Camera.FPS)
	}
	if c.Camera.Width <= 0 || c.Camera.Width > 4096 {
		return fmt.Errorf("無効な画像幅: %d", c.Camera.Width)
	}
	if c.Camera.Height <= 0 || c.Camera.Height > 4096 {
		return fmt.Errorf("無効な画像高さ: %d", c.Camera.Height)
	}
	if c.Camera.RetryInterval <= 0 {
		return fmt.Errorf("無効なリトライ間隔: %v", c.Camera.RetryInterval)
	}
	if c.Camera.MaxConsecutiveFailures <= 0 {
		return fmt.Errorf("無効な連続失敗数の閾値: %d", c.Camera.MaxConsecutiveFailures)
	}

	// 配信設定の検証
	if c.Stream.MaxFPS <= 0 || c.Stream.MaxFPS > 120 {
		return fmt.Errorf("無効な配信FPS上限: %d", c.Stream.MaxFPS)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault は環境変数をtime.Durationとして取得する（例: "500ms", "2s"）
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
