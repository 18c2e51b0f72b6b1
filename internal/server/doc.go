// Package server は、HTTPサーバーとMJPEGストリーミング配信を管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// フレームリレーからのフレーム配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - 閲覧用HTMLページの配信
//   - MJPEGストリーム（multipart/x-mixed-replace）の配信
//   - ヘルスチェックとステータスAPIの提供
//   - グレースフルシャットダウン
//
// 仕様:
//   - ルーティングとJSONレスポンスにgin-gonic/ginを使用
//   - クライアントごとに独立した配信ループを実行し、
//     切断の影響は当該クライアントに限定される
//   - 配信レートは設定で上限を指定できる
//   - 複数クライアントの同時接続をサポート
package server
