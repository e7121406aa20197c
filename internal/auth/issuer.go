package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nao1215/aida/internal/config"
	"github.com/nao1215/aida/pkg/middleware"
)

// ApplicationToken は発行したアプリケーショントークン。
type ApplicationToken struct {
	// Value は署名済みのトークン文字列。
	Value string
	// Role は埋め込んだロール。
	Role Role
	// IssuedAt は発行時刻。
	IssuedAt time.Time
	// ExpiresAt は有効期限。
	ExpiresAt time.Time
}

// String はトークン文字列を伏せた文字列を返す。
func (t ApplicationToken) String() string {
	return fmt.Sprintf("ApplicationToken{Value:[REDACTED] Role:%s ExpiresAt:%s}", t.Role, t.ExpiresAt.Format(time.RFC3339))
}

// GoString は %#v で出力された場合にもトークン文字列を伏せる。
func (t ApplicationToken) GoString() string {
	return t.String()
}

// TokenIssuer は検証済みの属性からロールを決定し、HS256で署名したトークンを発行する。
// 生成後は状態を変更しないため、複数のゴルーチンから同時に使用できる。
type TokenIssuer struct {
	// signing は署名鍵、発行者、対象者。
	signing middleware.JWTConfig
	// lifetime は発行からの有効期間。
	lifetime time.Duration
	// privileged はAdminロールを割り当てるメールアドレス。
	privileged string
	// now は現在時刻を返す。
	now func() time.Time
}

// IssuerOption はTokenIssuerの生成オプション。
type IssuerOption func(*TokenIssuer)

// WithClock は現在時刻の取得方法を差し替える。
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) {
		i.now = now
	}
}

// NewTokenIssuer は署名設定とロール設定からTokenIssuerを生成する。
// 署名鍵の欠落や不足、発行者、対象者、有効期間の不備はErrInvalidConfigとして拒否する。
func NewTokenIssuer(auth config.JwtAuth, roles config.Roles, opts ...IssuerOption) (*TokenIssuer, error) {
	var problems []error
	if len(auth.SecretKey) < config.MinSigningKeyLength {
		problems = append(problems, fmt.Errorf("JwtAuth:SecretKey は%dバイト以上必要です", config.MinSigningKeyLength))
	}
	if auth.Issuer == "" {
		problems = append(problems, errors.New("JwtAuth:Issuer が設定されていません"))
	}
	if auth.Audience == "" {
		problems = append(problems, errors.New("JwtAuth:Audience が設定されていません"))
	}
	if auth.TokenExpiryInMinutes <= 0 {
		problems = append(problems, errors.New("JwtAuth:TokenExpiryInMinutes は正の値である必要があります"))
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, errors.Join(problems...))
	}

	i := &TokenIssuer{
		signing: middleware.JWTConfig{
			Secret:   []byte(auth.SecretKey),
			Issuer:   auth.Issuer,
			Audience: auth.Audience,
		},
		lifetime:   auth.TokenLifetime(),
		privileged: roles.AdminEmail,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue はロールを決定してトークンを発行する。
// 有効期限は発行時刻に設定された有効期間を加えた時刻となる。
func (i *TokenIssuer) Issue(claims IdentityClaims) (ApplicationToken, error) {
	role := RoleFor(claims.Email, i.privileged)
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.lifetime)

	value, err := middleware.SignJWT(i.signing, middleware.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.signing.Issuer,
			Audience:  jwt.ClaimStrings{i.signing.Audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: claims.Email,
		Name:  claims.Name,
		Role:  role.String(),
	})
	if err != nil {
		return ApplicationToken{}, fmt.Errorf("アプリケーショントークンの発行に失敗: %w", err)
	}

	return ApplicationToken{
		Value:     value,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// SigningConfig はトークン検証ミドルウェアで使用する署名設定を返す。
func (i *TokenIssuer) SigningConfig() middleware.JWTConfig {
	return i.signing
}
