// Package relay 最新フレームの中継を担う
//
// # 責務
// - キャプチャループが発行する最新フレーム1枚の保持
// - 複数のストリーミングクライアントへのフレーム配布
// - フレームのシーケンス番号管理
//
// # 仕様
// - 単一生産者・複数消費者モデル（キャプチャループが唯一の書き込み側）
// - フレームはキューせず常に最新の1枚だけを保持する（置き換え方式）
// - 読み取り側は最新フレームか「フレームなし」のどちらかだけを観測する
// - 読み取り側が書き込み側を無期限にブロックすることはない
// - ポーリングが遅いクライアントは中間フレームをスキップする（仕様上の許容）
package relay
