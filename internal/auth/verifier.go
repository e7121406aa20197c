package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	capjwt "github.com/hashicorp/cap/jwt"

	"github.com/nao1215/aida/internal/config"
)

var (
	// ErrInvalidToken はIDトークンの検証に失敗したことを表す。
	// 署名不正、対象者の不一致、期限切れ、形式不正を区別しない。
	ErrInvalidToken = errors.New("IDトークンが無効です")
	// ErrVerificationAborted はタイムアウトまたはキャンセルにより検証が中断されたことを表す。
	ErrVerificationAborted = errors.New("IDトークンの検証が中断されました")
	// ErrVerifierUnavailable は署名鍵を取得できず、トークンの正否を判定できなかったことを表す。
	ErrVerifierUnavailable = errors.New("IDトークンの署名鍵を取得できません")
)

// Verifier は外部IDトークンを検証し、検証済みの属性を返す。
type Verifier interface {
	// Verify は生のトークンを検証する。失敗した場合はErrInvalidTokenまたは
	// ErrVerificationAborted、ErrVerifierUnavailableを返し、IdentityClaimsは返さない。
	Verify(ctx context.Context, rawToken string) (IdentityClaims, error)
}

// GoogleVerifier はGoogleが発行したIDトークンを公開鍵セットで検証する。
type GoogleVerifier struct {
	// validator は署名、アルゴリズム、対象者、有効期限を検証する。
	validator *capjwt.Validator
	// audience は期待するaud（OAuthクライアントID）。
	audience string
	// issuers は受け付けるiss。
	issuers map[string]struct{}
}

// NewGoogleVerifier はJWKSエンドポイントから署名鍵を取得するGoogleVerifierを生成する。
// ctxは鍵取得のHTTPクライアントに使用されるため、プロセスの生存期間と同じものを渡す。
func NewGoogleVerifier(ctx context.Context, cfg config.Google) (*GoogleVerifier, error) {
	keySet, err := capjwt.NewJSONWebKeySet(ctx, cfg.JWKSURL, "")
	if err != nil {
		return nil, fmt.Errorf("Googleの公開鍵セットの初期化に失敗: %w", err)
	}
	return NewGoogleVerifierWithKeySet(keySet, cfg.ClientID, cfg.Issuers)
}

// NewGoogleVerifierWithKeySet は任意の鍵セットを使用するGoogleVerifierを生成する。
func NewGoogleVerifierWithKeySet(keySet capjwt.KeySet, audience string, issuers []string) (*GoogleVerifier, error) {
	if audience == "" {
		return nil, fmt.Errorf("%w: GoogleConfiguration:ClientId が設定されていません", config.ErrInvalidConfig)
	}
	if len(issuers) == 0 {
		issuers = config.DefaultGoogleIssuers()
	}
	validator, err := capjwt.NewValidator(keySet)
	if err != nil {
		return nil, fmt.Errorf("IDトークン検証器の初期化に失敗: %w", err)
	}
	allowed := make(map[string]struct{}, len(issuers))
	for _, iss := range issuers {
		allowed[iss] = struct{}{}
	}
	return &GoogleVerifier{
		validator: validator,
		audience:  audience,
		issuers:   allowed,
	}, nil
}

// Verify はIDトークンを検証し、メールアドレスと表示名だけを取り出す。
// それ以外のクレームは破棄する。
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (IdentityClaims, error) {
	if err := ctx.Err(); err != nil {
		return IdentityClaims{}, fmt.Errorf("%w: %w", ErrVerificationAborted, err)
	}

	claims, err := v.validator.Validate(ctx, rawToken, capjwt.Expected{
		Audiences:         []string{v.audience},
		SigningAlgorithms: []capjwt.Alg{capjwt.RS256},
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return IdentityClaims{}, fmt.Errorf("%w: %w", ErrVerificationAborted, ctxErr)
	}
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return IdentityClaims{}, ErrVerifierUnavailable
		}
		return IdentityClaims{}, ErrInvalidToken
	}

	// 期限の無いトークンは受け付けない
	if !hasNumericDate(claims, "exp") || !hasNumericDate(claims, "iat") {
		return IdentityClaims{}, ErrInvalidToken
	}
	iss, _ := claims["iss"].(string)
	if _, ok := v.issuers[iss]; !ok {
		return IdentityClaims{}, ErrInvalidToken
	}
	if !emailVerified(claims) {
		return IdentityClaims{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return IdentityClaims{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)

	return IdentityClaims{Email: email, Name: name}, nil
}

// hasNumericDate はクレームが正の数値日時として存在するかを返す。
func hasNumericDate(claims map[string]any, name string) bool {
	switch v := claims[name].(type) {
	case float64:
		return v > 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f > 0
	default:
		return false
	}
}

// emailVerified はemail_verifiedクレームが偽でないことを確認する。
// クレームが無い場合は検証済みとみなす。古いトークンでは文字列の場合がある。
func emailVerified(claims map[string]any) bool {
	switch v := claims["email_verified"].(type) {
	case bool:
		return v
	case string:
		return v != "false"
	default:
		return true
	}
}
