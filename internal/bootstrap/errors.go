package bootstrap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArtifactPath はファイルパスとして受け付けられない文字列が指定されたことを表す。
	ErrInvalidArtifactPath = errors.New("ファイルパスが不正です")
	// ErrMissingArtifact は起動に必須のファイルが存在しないことを表す。
	ErrMissingArtifact = errors.New("必須ファイルが存在しません")
	// ErrArtifactNotFound は読み込み対象のファイルが見つからないことを表す。
	ErrArtifactNotFound = errors.New("ファイルが見つかりません")
	// ErrMalformedSecret はシークレットファイルの構造が不正であることを表す。
	ErrMalformedSecret = errors.New("シークレットファイルの形式が不正です")
	// ErrMissingTemplate は接続文字列テンプレートが設定されていないことを表す。
	ErrMissingTemplate = errors.New("接続文字列テンプレートが設定されていません")
	// ErrUnsupportedEngine はサポートしていないデータベースエンジンが指定されたことを表す。
	ErrUnsupportedEngine = errors.New("サポートしていないデータベースエンジンです")
)

// ArtifactError は特定のファイルに関するエラー。
// Nameにはファイル名のみを保持し、ファイルの内容は含めない。
type ArtifactError struct {
	// Name は対象ファイルのコンテンツルートからの相対パス。
	Name string
	// Err はエラーの種類を表すセンチネルエラー（またはそれをラップしたエラー）。
	Err error
}

// Error はエラーメッセージを返す。
func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

// Unwrap はラップしているエラーを返す。
func (e *ArtifactError) Unwrap() error {
	return e.Err
}
