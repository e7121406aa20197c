// Package auth はGoogleログインからアプリケーショントークンを発行するまでの処理を提供する。
//
// 外部IDトークンの検証（Verifier）、ロールの決定（RoleFor）、
// HS256トークンの発行（TokenIssuer）、およびそれらをつなぐログインの
// 状態遷移（LoginService）を含む。すべての依存は起動時に組み立てた
// 不変の設定から構築し、リクエスト処理中に共有状態を書き換えない。
package auth
