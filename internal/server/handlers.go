package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"teiten/internal/camera"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// mjpegBoundary はmultipartストリームの境界文字列
const mjpegBoundary = "frame"

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status    string       `json:"status"`
	Server    ServerInfo   `json:"server"`
	Camera    CameraStatus `json:"camera"`
	Clients   int64        `json:"clients"`
	Timestamp time.Time    `json:"timestamp"`
}

// ServerInfo はサーバーの情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// CameraStatus はカメラとキャプチャループの状態
type CameraStatus struct {
	Status   camera.Status `json:"status"`
	FrameSeq uint64        `json:"frame_seq"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	FPS      int           `json:"fps"`
}

// handleIndex は閲覧用ページを返す
func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

// handleHealth はヘルスチェックエンドポイントの実装
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleStatus はシステム状態取得エンドポイントの実装
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status: "running",
		Server: ServerInfo{
			Host: s.config.Server.Host,
			Port: s.config.Server.Port,
		},
		Camera: CameraStatus{
			Status:   s.capture.Status(),
			FrameSeq: s.relay.Seq(),
			Width:    s.config.Camera.Width,
			Height:   s.config.Camera.Height,
			FPS:      s.config.Camera.FPS,
		},
		Clients:   s.clients.Load(),
		Timestamp: time.Now(),
	})
}

// handleStream はMJPEGストリームを配信する
// クライアントごとに独立したループを実行し、切断は他の接続に影響しない
func (s *Server) handleStream(c *gin.Context) {
	clientID := uuid.New().String()

	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// 最初のフレームを待つ前にヘッダーを確定させる
	writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.clients.Add(1)
	log.Printf("ストリーミングクライアントが接続しました: %s", clientID)
	defer func() {
		s.clients.Add(-1)
		log.Printf("ストリーミングクライアントが切断しました: %s", clientID)
	}()

	ctx := c.Request.Context()

	// 送信レートの上限
	interval := time.Second / time.Duration(s.config.Stream.MaxFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		// 最新フレームを取得する（新しいフレームが無ければ短時間待つ）
		frame, ok := s.relay.Next(ctx, lastSeq)
		if !ok {
			// 切断されたか、まだ1枚も発行されていない
			if ctx.Err() != nil {
				return
			}
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		lastSeq = frame.Seq

		// フレームを1チャンクとして書き込む
		// 書き込み失敗はクライアント切断とみなしてこのループだけを終了する
		if err := writeMJPEGPart(writer, frame.Data); err != nil {
			return
		}
		flusher.Flush()

		// レート上限まで待機
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
		}
	}
}

// writeMJPEGPart はフレーム1枚をmultipartの1パートとして書き込む
func writeMJPEGPart(w io.Writer, data []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
		mjpegBoundary, len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// indexHTML は閲覧用ページ
// 接続エラー時は5秒後に再接続を試みる
const indexHTML = `<!DOCTYPE html>
<html lang="ja">
  <head>
    <title>Teiten - 定点カメラストリーミング</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
      body { font-family: sans-serif; margin: 0; padding: 20px; text-align: center; background-color: #f5f5f5; }
      h1 { color: #333; }
      .video-container { margin: 20px auto; max-width: 800px; background-color: #000; padding: 10px; border-radius: 5px; }
      img { width: 100%; border: 1px solid #ddd; }
      .status { color: #666; margin-top: 10px; background-color: #fff; padding: 5px; border-radius: 3px; }
    </style>
    <script>
      // 接続エラーを処理する（5秒後に再接続）
      function handleImageError() {
        document.getElementById('status').textContent = 'カメラからの映像を取得できません。5秒後に再試行します...';
        setTimeout(function() {
          var img = document.getElementById('stream');
          img.src = '/stream?t=' + new Date().getTime();
          document.getElementById('status').textContent = 'カメラストリーミング中';
        }, 5000);
      }
    </script>
  </head>
  <body>
    <h1>定点カメラストリーミング</h1>
    <div class="video-container">
      <img id="stream" src="/stream" alt="カメラストリーム" onerror="handleImageError()">
    </div>
    <p id="status" class="status">カメラストリーミング中</p>
  </body>
</html>`
