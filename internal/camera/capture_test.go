package camera

import (
	"bytes"
	"testing"
)

// jpegFrame はテスト用の疑似JPEGフレームを作る
func jpegFrame(payload []byte) []byte {
	frame := append([]byte{}, jpegSOI...)
	frame = append(frame, payload...)
	return append(frame, jpegEOI...)
}

// TestExtractJPEGFrame はMJPEGバイト列からのフレーム切り出しをテストする
func TestExtractJPEGFrame(t *testing.T) {
	t.Run("完全なフレーム1枚", func(t *testing.T) {
		var buf bytes.Buffer
		want := jpegFrame([]byte("payload"))
		buf.Write(want)

		frame, ok := extractJPEGFrame(&buf)
		if !ok {
			t.Fatal("フレームが切り出されませんでした")
		}
		if !bytes.Equal(frame, want) {
			t.Errorf("フレームが一致しません: got %x, want %x", frame, want)
		}
		if buf.Len() != 0 {
			t.Errorf("バッファに残りがあります: %d bytes", buf.Len())
		}
	})

	t.Run("連続する複数フレーム", func(t *testing.T) {
		var buf bytes.Buffer
		first := jpegFrame([]byte("one"))
		second := jpegFrame([]byte("two"))
		buf.Write(first)
		buf.Write(second)

		frame, ok := extractJPEGFrame(&buf)
		if !ok || !bytes.Equal(frame, first) {
			t.Fatalf("1枚目の切り出しに失敗しました: %x", frame)
		}

		frame, ok = extractJPEGFrame(&buf)
		if !ok || !bytes.Equal(frame, second) {
			t.Fatalf("2枚目の切り出しに失敗しました: %x", frame)
		}
	})

	t.Run("不完全なフレームは保留", func(t *testing.T) {
		var buf bytes.Buffer
		buf.Write(jpegSOI)
		buf.Write([]byte("partial"))

		if _, ok := extractJPEGFrame(&buf); ok {
			t.Fatal("不完全なフレームが切り出されました")
		}

		// 残りが届いたら切り出せること
		buf.Write(jpegEOI)
		frame, ok := extractJPEGFrame(&buf)
		if !ok {
			t.Fatal("完成したフレームが切り出されませんでした")
		}
		if !bytes.Equal(frame, jpegFrame([]byte("partial"))) {
			t.Errorf("フレームが一致しません: %x", frame)
		}
	})

	t.Run("先頭のゴミを読み飛ばす", func(t *testing.T) {
		var buf bytes.Buffer
		buf.Write([]byte{0x00, 0x01, 0x02})
		want := jpegFrame([]byte("clean"))
		buf.Write(want)

		frame, ok := extractJPEGFrame(&buf)
		if !ok {
			t.Fatal("フレームが切り出されませんでした")
		}
		if !bytes.Equal(frame, want) {
			t.Errorf("フレームが一致しません: %x", frame)
		}
	})

	t.Run("マーカーなしのデータは破棄", func(t *testing.T) {
		var buf bytes.Buffer
		buf.Write([]byte("no markers here"))

		if _, ok := extractJPEGFrame(&buf); ok {
			t.Fatal("フレームが無いのに切り出されました")
		}
		if buf.Len() != 0 {
			t.Errorf("マーカーの無いデータが保持されています: %d bytes", buf.Len())
		}
	})

	t.Run("チャンク境界で分断されたSOI", func(t *testing.T) {
		var buf bytes.Buffer
		want := jpegFrame([]byte("split"))

		// SOIの1バイト目だけが先に届いた状態
		buf.Write(want[:1])
		if _, ok := extractJPEGFrame(&buf); ok {
			t.Fatal("フレームが無いのに切り出されました")
		}

		buf.Write(want[1:])
		frame, ok := extractJPEGFrame(&buf)
		if !ok {
			t.Fatal("分断されたフレームが切り出されませんでした")
		}
		if !bytes.Equal(frame, want) {
			t.Errorf("フレームが一致しません: %x", frame)
		}
	})
}
