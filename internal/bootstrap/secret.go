package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// redacted はシークレットを文字列化した際の表記。
const redacted = "[REDACTED]"

// DatabaseSecret はデータベースごとのシークレットファイルの内容。
// 起動時に一度だけ読み込み、接続文字列の組み立てにのみ使用する。ログに出力してはならない。
type DatabaseSecret struct {
	// Username は接続ユーザー名。
	Username string `json:"username"`
	// Password は接続パスワード。
	Password string `json:"password"`
	// Host はデータベースのホスト名。
	Host string `json:"host"`
	// Port はデータベースのポート番号。
	Port int `json:"port"`
	// DatabaseName はデータベース名。
	DatabaseName string `json:"databaseName"`
}

// String は内容を伏せた文字列を返す。
func (s DatabaseSecret) String() string {
	return "DatabaseSecret(" + redacted + ")"
}

// GoString は %#v で出力された場合にも内容を伏せる。
func (s DatabaseSecret) GoString() string {
	return s.String()
}

// validate は必須フィールドがすべて設定されていることを検証する。
// エラーにはフィールド名のみを含め、値は含めない。
func (s DatabaseSecret) validate() error {
	var missing []string
	if s.Username == "" {
		missing = append(missing, "username")
	}
	if s.Password == "" {
		missing = append(missing, "password")
	}
	if s.Host == "" {
		missing = append(missing, "host")
	}
	if s.Port <= 0 || s.Port > 65535 {
		missing = append(missing, "port")
	}
	if s.DatabaseName == "" {
		missing = append(missing, "databaseName")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: 未設定または不正なフィールド: %s", ErrMalformedSecret, strings.Join(missing, ", "))
	}
	return nil
}

// SecretReader はデータベースごとのシークレットファイルを読み込む。
type SecretReader struct {
	// fsys はコンテンツルート。
	fsys fs.FS
	// checker はファイルの存在確認に使用する。
	checker FileChecker
}

// NewSecretReader はコンテンツルートを読み込み元とするSecretReaderを生成する。
func NewSecretReader(fsys fs.FS) *SecretReader {
	return &SecretReader{fsys: fsys, checker: NewFSChecker(fsys)}
}

// Read はデータベース識別子に対応するシークレットファイルを読み込む。
// ファイルは必須ファイルの検証と同じく正規の表記と小文字の表記の両方を受け付ける。
// ファイルが存在しなければ ErrArtifactNotFound、構造が不正または
// フィールドが欠けていれば ErrMalformedSecret を返す。
func (r *SecretReader) Read(id DatabaseIdentifier) (DatabaseSecret, error) {
	name := DatabaseSecretsFile(id)
	path, err := NewArtifactPath(name)
	if err != nil {
		return DatabaseSecret{}, &ArtifactError{Name: name, Err: err}
	}

	resolved, ok := CanonicalOrLower.Resolve(r.checker, path)
	if !ok {
		return DatabaseSecret{}, &ArtifactError{Name: name, Err: ErrArtifactNotFound}
	}

	data, err := fs.ReadFile(r.fsys, resolved.String())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DatabaseSecret{}, &ArtifactError{Name: name, Err: ErrArtifactNotFound}
		}
		return DatabaseSecret{}, &ArtifactError{Name: name, Err: fmt.Errorf("読み込みに失敗: %w", err)}
	}

	secret, err := decodeSecret(data)
	if err != nil {
		return DatabaseSecret{}, &ArtifactError{Name: name, Err: err}
	}
	if err := secret.validate(); err != nil {
		return DatabaseSecret{}, &ArtifactError{Name: name, Err: err}
	}
	return secret, nil
}

// decodeSecret はシークレットファイルを解析する。
// フィールド名は大文字小文字を区別して照合し、表記の異なるキーは未設定として扱う。
func decodeSecret(data []byte) (DatabaseSecret, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return DatabaseSecret{}, describeJSONError(err)
	}

	var secret DatabaseSecret
	targets := []struct {
		key string
		out any
	}{
		{keyUsername, &secret.Username},
		{keyPassword, &secret.Password},
		{keyHost, &secret.Host},
		{keyPort, &secret.Port},
		{keyDatabaseName, &secret.DatabaseName},
	}
	for _, f := range targets {
		raw, ok := fields[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.out); err != nil {
			return DatabaseSecret{}, fmt.Errorf("%w: %s の型が不正です", ErrMalformedSecret, f.key)
		}
	}
	return secret, nil
}

// describeJSONError はJSONの解析エラーを値を含まないErrMalformedSecretに変換する。
func describeJSONError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %s の型が不正です", ErrMalformedSecret, typeErr.Field)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("%w: オフセット %d で構文エラー", ErrMalformedSecret, syntaxErr.Offset)
	}
	return fmt.Errorf("%w: JSONオブジェクトとして解釈できません", ErrMalformedSecret)
}
