package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// jpegSOI/jpegEOI はJPEGフレームの開始・終了マーカー
var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// LibcameraCapturer はrpicam-apps (libcamera) 経由でPiカメラから画像を取得する
type LibcameraCapturer struct {
	command string // コマンドのプレフィックス（rpicam または libcamera）
	width   int
	height  int
	fps     int
}

// NewLibcameraCapturer は新しいLibcameraCapturerを作成する
func NewLibcameraCapturer(command string, width, height, fps int) *LibcameraCapturer {
	if command == "" {
		command = "rpicam"
	}
	return &LibcameraCapturer{
		command: command,
		width:   width,
		height:  height,
		fps:     fps,
	}
}

// IsAvailable はカメラが利用可能かチェックする
func (c *LibcameraCapturer) IsAvailable(ctx context.Context) bool {
	// rpicam-hello --list-cameras でカメラの存在を確認
	cmd := exec.CommandContext(ctx, c.command+"-hello", "--list-cameras")
	err := cmd.Run()
	return err == nil
}

// CaptureStill は静止画1枚をキャプチャしてJPEGバイト配列として返す
func (c *LibcameraCapturer) CaptureStill(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx,
		c.command+"-still",
		"--output", "-",
		"--encoding", "jpg",
		"--width", strconv.Itoa(c.width),
		"--height", strconv.Itoa(c.height),
		"--timeout", "1",
		"--nopreview",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("静止画キャプチャに失敗: %w (stderr: %s)", err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// StartStream は連続キャプチャを開始し、JPEGフレームをframeChanへ送り続ける
// コンテキストのキャンセルでサブプロセスごと停止する
func (c *LibcameraCapturer) StartStream(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error) {
	// rpicam-vidでMJPEGストリームを標準出力へ吐かせる
	cmd := exec.CommandContext(ctx,
		c.command+"-vid",
		"--codec", "mjpeg",
		"--output", "-",
		"--width", strconv.Itoa(c.width),
		"--height", strconv.Itoa(c.height),
		"--framerate", strconv.Itoa(c.fps),
		"--timeout", "0",
		"--nopreview",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		errorChan <- fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
		return
	}

	if err := cmd.Start(); err != nil {
		errorChan <- fmt.Errorf("%s-vidの起動に失敗: %w", c.command, err)
		return
	}

	go func() {
		defer func() {
			_ = cmd.Wait() // コンテキストキャンセル時のエラーは無視
		}()

		buffer := make([]byte, 256*1024)
		var frameBuffer bytes.Buffer

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			n, err := stdout.Read(buffer)
			if err != nil {
				if ctx.Err() == nil {
					errorChan <- fmt.Errorf("ストリーム読み取りエラー: %w", err)
				}
				return
			}
			frameBuffer.Write(buffer[:n])

			// 蓄積したバイト列から完全なJPEGフレームを切り出す
			for {
				frame, ok := extractJPEGFrame(&frameBuffer)
				if !ok {
					break
				}

				select {
				case frameChan <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

// extractJPEGFrame はバッファ先頭の完全なJPEGフレーム1枚を切り出す
// 完全なフレームがまだない場合はfalseを返し、SOIマーカー前のゴミは捨てる
func extractJPEGFrame(frameBuffer *bytes.Buffer) ([]byte, bool) {
	data := frameBuffer.Bytes()

	startIdx := bytes.Index(data, jpegSOI)
	if startIdx == -1 {
		// SOIが無い。チャンク境界で分断された可能性のある末尾の0xFFだけ残す
		keepTail := len(data) > 0 && data[len(data)-1] == 0xFF
		frameBuffer.Reset()
		if keepTail {
			frameBuffer.WriteByte(0xFF)
		}
		return nil, false
	}

	endIdx := bytes.Index(data[startIdx+len(jpegSOI):], jpegEOI)
	if endIdx == -1 {
		// フレームの末尾がまだ届いていない
		if startIdx > 0 {
			remaining := make([]byte, len(data)-startIdx)
			copy(remaining, data[startIdx:])
			frameBuffer.Reset()
			frameBuffer.Write(remaining)
		}
		return nil, false
	}

	end := startIdx + len(jpegSOI) + endIdx + len(jpegEOI)
	frame := make([]byte, end-startIdx)
	copy(frame, data[startIdx:end])

	remaining := make([]byte, len(data)-end)
	copy(remaining, data[end:])
	frameBuffer.Reset()
	frameBuffer.Write(remaining)

	return frame, true
}
