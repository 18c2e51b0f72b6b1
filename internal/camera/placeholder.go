package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// placeholderText はカメラが利用できないときに表示するメッセージ
const placeholderText = "NO SIGNAL - CAMERA UNAVAILABLE"

// PlaceholderJPEG はカメラ利用不可を示すプレースホルダ画像を生成する
// 黒背景に白文字のメッセージを描いたJPEGを返す
func PlaceholderJPEG(width, height int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, placeholderText).Ceil()

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot: fixed.P(
			(width-textWidth)/2,
			height/2,
		),
	}
	drawer.DrawString(placeholderText)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("プレースホルダ画像のエンコードに失敗: %w", err)
	}

	return buf.Bytes(), nil
}
