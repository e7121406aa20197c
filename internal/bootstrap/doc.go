// Package bootstrap は起動時の設定・シークレット読み込みを提供する。
//
// 起動前に存在しなければならない設定ファイル・シークレットファイルを列挙して
// 存在を検証し、データベースごとのシークレットを読み込んで接続文字列テンプレートに
// 埋め込む。いずれかの検証に失敗した場合はプロセスを起動してはならない。
// HTTPリスナーの待ち受け開始前に一度だけ同期的に実行される。
package bootstrap
