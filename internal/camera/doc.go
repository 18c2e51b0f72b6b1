// Package camera Raspberry Piカメラからのフレーム取得を担う
//
// # 責務
// - カメラデバイスのオープン・キャプチャ・クローズ
// - libcamera (rpicam-vid) 経由でのMJPEGストリーム取得
// - キャプチャループの実行とフレームリレーへの発行
// - キャプチャ失敗時のリトライとプレースホルダ画像の生成
//
// # 仕様
// - Source: カメラデバイスの抽象化（Open/Capture/Close）
// - LibcameraSource: rpicam-vidサブプロセスからJPEGフレームを切り出す実装
// - FakeSource: テスト用の決定的なフレーム供給源
// - Service: 専用ゴルーチン1本でキャプチャ→発行を繰り返すループ
// - デバイスハンドルはServiceが排他的に所有する
// - キャプチャ失敗は固定間隔のバックオフで無限にリトライし、
//   プロセスを終了させない
//
// # 前提要件
//   - rpicam-apps: カメラのキャプチャに使用
//     Raspberry Pi OS: sudo apt install rpicam-apps
//     （旧環境では libcamera-apps。コマンド名は設定で変更可能）
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
