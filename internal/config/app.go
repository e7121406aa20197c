package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidConfig はアプリケーション設定が不正であることを表す。起動時に致命的なエラーとして扱う。
var ErrInvalidConfig = errors.New("アプリケーション設定が不正です")

// セクション名と設定キー。
const (
	SectionJwtAuth   = "JwtAuth"
	SectionGoogle    = "GoogleConfiguration"
	SectionRoles     = "Roles"
	SectionServer    = "Server"
	SectionLogging   = "Logging"
	SectionAudit     = "Audit"
	KeyAllowedOrigin = "AllowedOrigins"
	KeyMaxBodySize   = "MaxRequestBodySize"
)

// 既定値。
const (
	// DefaultGoogleJWKSURL はGoogleのIDトークン署名鍵の公開エンドポイント。
	DefaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	// DefaultVerifyTimeout は外部のトークン検証1回あたりの上限時間。
	DefaultVerifyTimeout = 10 * time.Second
	// DefaultPort はHTTPサーバーの既定ポート。
	DefaultPort = 8080
	// DefaultRoutePrefix はAPIのルートプレフィックス。
	DefaultRoutePrefix = "/api/aida-core"
	// DefaultShutdownTimeout はグレースフルシャットダウンの待ち時間。
	DefaultShutdownTimeout = 15 * time.Second
	// MinSigningKeyLength はHS256署名鍵の最小バイト数。
	MinSigningKeyLength = 32
)

// DefaultGoogleIssuers はGoogleのIDトークンとして受け付けるiss。
func DefaultGoogleIssuers() []string {
	return []string{"accounts.google.com", "https://accounts.google.com"}
}

// JwtAuth はアプリケーショントークンの署名設定。
type JwtAuth struct {
	// Issuer はトークンのiss。
	Issuer string `mapstructure:"Issuer"`
	// Audience はトークンのaud。
	Audience string `mapstructure:"Audience"`
	// SecretKey はHS256の署名鍵。
	SecretKey string `mapstructure:"SecretKey"`
	// TokenExpiryInMinutes は発行からの有効期間（分）。
	TokenExpiryInMinutes int `mapstructure:"TokenExpiryInMinutes"`
}

// String は署名鍵を伏せた文字列を返す。
func (j JwtAuth) String() string {
	return fmt.Sprintf("JwtAuth{Issuer:%s Audience:%s SecretKey:[REDACTED] TokenExpiryInMinutes:%d}",
		j.Issuer, j.Audience, j.TokenExpiryInMinutes)
}

// TokenLifetime はトークンの有効期間を返す。
func (j JwtAuth) TokenLifetime() time.Duration {
	return time.Duration(j.TokenExpiryInMinutes) * time.Minute
}

// Google はGoogle IDトークン検証の設定。
type Google struct {
	// ClientID は期待するaud（OAuthクライアントID）。
	ClientID string `mapstructure:"ClientId"`
	// JWKSURL は署名鍵の取得先。
	JWKSURL string `mapstructure:"JwksUrl"`
	// Issuers は受け付けるiss。
	Issuers []string `mapstructure:"-"`
	// VerifyTimeoutSeconds は検証1回あたりの上限時間（秒）。
	VerifyTimeoutSeconds int `mapstructure:"VerifyTimeoutSeconds"`
}

// VerifyTimeout は検証の上限時間を返す。
func (g Google) VerifyTimeout() time.Duration {
	if g.VerifyTimeoutSeconds <= 0 {
		return DefaultVerifyTimeout
	}
	return time.Duration(g.VerifyTimeoutSeconds) * time.Second
}

// Roles はロール割り当ての設定。
type Roles struct {
	// AdminEmail はAdminロールを割り当てる唯一のメールアドレス。大文字小文字を区別して比較する。
	AdminEmail string `mapstructure:"AdminEmail"`
}

// Server はHTTPサーバーの設定。
type Server struct {
	// Port はリッスンポート。
	Port int `mapstructure:"Port"`
	// RoutePrefix はAPIエンドポイントのプレフィックス。
	RoutePrefix string `mapstructure:"RoutePrefix"`
	// ShutdownTimeoutSeconds はグレースフルシャットダウンの待ち時間（秒）。
	ShutdownTimeoutSeconds int `mapstructure:"ShutdownTimeoutSeconds"`
}

// Addr はリッスンアドレスを返す。
func (s Server) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// ShutdownTimeout はグレースフルシャットダウンの待ち時間を返す。
func (s Server) ShutdownTimeout() time.Duration {
	if s.ShutdownTimeoutSeconds <= 0 {
		return DefaultShutdownTimeout
	}
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// Logging はログ出力の設定。
type Logging struct {
	// Level はログレベル（trace, debug, info, warn, error）。
	Level string `mapstructure:"Level"`
	// Format は出力形式（console または json）。
	Format string `mapstructure:"Format"`
	// File はログファイルのパス。空なら標準エラー出力のみ。
	File string `mapstructure:"File"`
	// MaxSizeMB はローテーションするファイルサイズ（MB）。
	MaxSizeMB int `mapstructure:"MaxSizeMB"`
	// MaxBackups は保持する世代数。
	MaxBackups int `mapstructure:"MaxBackups"`
	// MaxAgeDays は保持する日数。
	MaxAgeDays int `mapstructure:"MaxAgeDays"`
}

// Audit はログイン監査記録の設定。
type Audit struct {
	// Path はSQLiteファイルのパス。空なら記録しない。
	Path string `mapstructure:"Path"`
}

// Database は組み立て済みのデータベース接続設定。
type Database struct {
	// Engine はデータベースエンジン名。
	Engine string
	// ConnectionString は平文の認証情報を含む接続文字列。
	ConnectionString string
}

// String は接続文字列を伏せた文字列を返す。
func (d Database) String() string {
	return "Database{Engine:" + d.Engine + " ConnectionString:[REDACTED]}"
}

// GoString は %#v で出力された場合にも接続文字列を伏せる。
func (d Database) GoString() string {
	return d.String()
}

// App は起動時に一度だけ組み立てるアプリケーション設定。
// 組み立て後は変更せず、参照として各コンポーネントに渡す。
type App struct {
	// Environment は有効な環境名。
	Environment string
	// JwtAuth はアプリケーショントークンの署名設定。
	JwtAuth JwtAuth
	// Google はGoogle IDトークン検証の設定。
	Google Google
	// Roles はロール割り当ての設定。
	Roles Roles
	// Server はHTTPサーバーの設定。
	Server Server
	// Logging はログ出力の設定。
	Logging Logging
	// Audit はログイン監査記録の設定。
	Audit Audit
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// MaxRequestBodySize はリクエストボディの上限（バイト）。0以下なら無制限。
	MaxRequestBodySize int64
	// Databases はデータベース識別子ごとの接続設定。
	Databases map[string]Database
}

// FromSettings は重ね合わせた設定からアプリケーション設定を組み立てる。
// データベース接続は含まないため、呼び出し側でDatabasesを設定する。
func FromSettings(s *Settings, environment string) (*App, error) {
	app := &App{
		Environment: environment,
		Databases:   make(map[string]Database),
	}

	sections := []struct {
		name string
		out  any
	}{
		{SectionJwtAuth, &app.JwtAuth},
		{SectionGoogle, &app.Google},
		{SectionRoles, &app.Roles},
		{SectionServer, &app.Server},
		{SectionLogging, &app.Logging},
		{SectionAudit, &app.Audit},
	}
	for _, sec := range sections {
		if err := s.Decode(sec.name, sec.out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	app.Google.Issuers = s.Strings(SectionGoogle + KeySeparator + "Issuers")
	app.AllowedOrigins = s.Strings(KeyAllowedOrigin)

	if raw, ok := s.Get(KeyMaxBodySize); ok && raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s が数値ではありません", ErrInvalidConfig, KeyMaxBodySize)
		}
		app.MaxRequestBodySize = size
	}

	app.applyDefaults()
	return app, nil
}

// applyDefaults は未設定の項目に既定値を設定する。
func (a *App) applyDefaults() {
	if a.Google.JWKSURL == "" {
		a.Google.JWKSURL = DefaultGoogleJWKSURL
	}
	if len(a.Google.Issuers) == 0 {
		a.Google.Issuers = DefaultGoogleIssuers()
	}
	if a.Server.Port == 0 {
		a.Server.Port = DefaultPort
	}
	if a.Server.RoutePrefix == "" {
		a.Server.RoutePrefix = DefaultRoutePrefix
	}
	a.Server.RoutePrefix = "/" + strings.Trim(a.Server.RoutePrefix, "/")
	if a.Server.RoutePrefix == "/" {
		a.Server.RoutePrefix = ""
	}
}

// Validate は起動に必要な設定が揃っていることを検証する。
// 署名設定の欠落や弱い署名鍵は、未署名や弱い署名のトークンを発行しないよう起動時に拒否する。
func (a *App) Validate() error {
	var problems []string
	if a.JwtAuth.SecretKey == "" {
		problems = append(problems, "JwtAuth:SecretKey が設定されていません")
	} else if len(a.JwtAuth.SecretKey) < MinSigningKeyLength {
		problems = append(problems, fmt.Sprintf("JwtAuth:SecretKey は%dバイト以上必要です", MinSigningKeyLength))
	}
	if a.JwtAuth.Issuer == "" {
		problems = append(problems, "JwtAuth:Issuer が設定されていません")
	}
	if a.JwtAuth.Audience == "" {
		problems = append(problems, "JwtAuth:Audience が設定されていません")
	}
	if a.JwtAuth.TokenExpiryInMinutes <= 0 {
		problems = append(problems, "JwtAuth:TokenExpiryInMinutes は正の値である必要があります")
	}
	if a.Google.ClientID == "" {
		problems = append(problems, "GoogleConfiguration:ClientId が設定されていません")
	}
	if a.Roles.AdminEmail == "" {
		problems = append(problems, "Roles:AdminEmail が設定されていません")
	}
	if a.Server.Port < 0 || a.Server.Port > 65535 {
		problems = append(problems, "Server:Port が範囲外です")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
