package bootstrap

import (
	"fmt"
	"strconv"
	"strings"
)

// 接続文字列テンプレートのプレースホルダー。大文字小文字を区別する。
const (
	PlaceholderUserID       = "[[UserId]]"
	PlaceholderPassword     = "[[Password]]"
	PlaceholderPort         = "[[Port]]"
	PlaceholderDatabaseName = "[[DatabaseName]]"
	PlaceholderHost         = "[[Host]]"
)

// 設定キーの構成要素。ConnectionStrings:<DatabaseIdentifier>:<field> の形式になる。
const (
	connectionStringsSection = "ConnectionStrings"

	keyUsername     = "username"
	keyPassword     = "password"
	keyPort         = "port"
	keyDatabaseName = "databaseName"
	keyHost         = "host"
)

// Lookup は設定値をキーで参照する。
type Lookup interface {
	// Get はキーに対応する値を返す。存在しなければfalse。
	Get(key string) (string, bool)
}

// Property は設定キーと値の組。
type Property struct {
	// Key は設定キー。
	Key string
	// Value は設定値。
	Value string
}

// TemplateKey はデータベース識別子に対応する接続文字列テンプレートの設定キーを返す。
func TemplateKey(id DatabaseIdentifier) string {
	return connectionStringsSection + ":" + id.String()
}

// secretKey はシークレットの各フィールドを格納する設定キーを返す。
func secretKey(id DatabaseIdentifier, field string) string {
	return TemplateKey(id) + ":" + field
}

// SecretProperties はシークレットをインメモリ設定として追加するためのキーと値を返す。
func SecretProperties(id DatabaseIdentifier, secret DatabaseSecret) []Property {
	return []Property{
		{Key: secretKey(id, keyUsername), Value: secret.Username},
		{Key: secretKey(id, keyPassword), Value: secret.Password},
		{Key: secretKey(id, keyPort), Value: strconv.Itoa(secret.Port)},
		{Key: secretKey(id, keyDatabaseName), Value: secret.DatabaseName},
		{Key: secretKey(id, keyHost), Value: secret.Host},
	}
}

// Compose はテンプレートのプレースホルダーをシークレットの値で置換した接続文字列を返す。
// 置換は一度の走査で行うため、置換後の値に含まれるプレースホルダー表記は再置換されない。
// 戻り値は平文の認証情報を含むため、ログやエラーメッセージに含めてはならない。
func Compose(template string, secret DatabaseSecret) string {
	r := strings.NewReplacer(
		PlaceholderUserID, secret.Username,
		PlaceholderPassword, secret.Password,
		PlaceholderPort, strconv.Itoa(secret.Port),
		PlaceholderDatabaseName, secret.DatabaseName,
		PlaceholderHost, secret.Host,
	)
	return r.Replace(template)
}

// ComposeFor は設定からテンプレートとシークレットの値を取得して接続文字列を組み立てる。
// テンプレートが設定されていなければ ErrMissingTemplate を返す。
func ComposeFor(settings Lookup, id DatabaseIdentifier) (string, error) {
	template, ok := settings.Get(TemplateKey(id))
	if !ok || strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("%s: %w", id, ErrMissingTemplate)
	}

	secret, err := secretFromSettings(settings, id)
	if err != nil {
		return "", err
	}
	return Compose(template, secret), nil
}

// secretFromSettings はインメモリ設定に格納されたシークレットを取り出す。
func secretFromSettings(settings Lookup, id DatabaseIdentifier) (DatabaseSecret, error) {
	get := func(field string) string {
		v, _ := settings.Get(secretKey(id, field))
		return v
	}

	secret := DatabaseSecret{
		Username:     get(keyUsername),
		Password:     get(keyPassword),
		Host:         get(keyHost),
		DatabaseName: get(keyDatabaseName),
	}
	if raw := get(keyPort); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return DatabaseSecret{}, &ArtifactError{
				Name: DatabaseSecretsFile(id),
				Err:  fmt.Errorf("%w: portが数値ではありません", ErrMalformedSecret),
			}
		}
		secret.Port = port
	}
	if err := secret.validate(); err != nil {
		return DatabaseSecret{}, &ArtifactError{Name: DatabaseSecretsFile(id), Err: err}
	}
	return secret, nil
}
