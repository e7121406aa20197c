// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// アプリケーショントークン（HS256 JWT）の署名と検証、リクエストID、
// アクセスログ、パニックリカバリ、CORS、ボディサイズ制限、
// problem details形式のエラーレスポンスを含む。
package middleware
