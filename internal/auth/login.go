package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nao1215/aida/internal/config"
)

// ErrRequestValidation はログインリクエストの必須項目が欠けていることを表す。
var ErrRequestValidation = errors.New("IDトークンが指定されていません")

// LoginState はログイン処理の状態。
type LoginState int

const (
	// StateReceived は生のトークンを受け取った初期状態。
	StateReceived LoginState = iota
	// StateVerifying は外部IDトークンを検証中の状態。
	StateVerifying
	// StateVerified は検証に成功した状態。
	StateVerified
	// StateIssuing はアプリケーショントークンを発行中の状態。
	StateIssuing
	// StateIssued はトークンを発行した終了状態。
	StateIssued
	// StateRejected は認証に失敗した終了状態。トークンは発行されない。
	StateRejected
)

// String は状態名を返す。
func (s LoginState) String() string {
	switch s {
	case StateReceived:
		return "Received"
	case StateVerifying:
		return "Verifying"
	case StateVerified:
		return "Verified"
	case StateIssuing:
		return "Issuing"
	case StateIssued:
		return "Issued"
	case StateRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("LoginState(%d)", int(s))
	}
}

// Terminal は終了状態かどうかを返す。
func (s LoginState) Terminal() bool {
	return s == StateIssued || s == StateRejected
}

// LoginResult はログイン処理の結果。
type LoginResult struct {
	// State は終了状態（IssuedまたはRejected）。
	State LoginState
	// Path は通過した状態の履歴。
	Path []LoginState
	// Claims は検証済みの属性。検証に失敗した場合は空。
	Claims IdentityClaims
	// Token は発行したトークン。State が Issued の場合のみ設定される。
	Token ApplicationToken
}

// LoginService は外部IDトークンの検証からトークン発行までを1回だけ実行する。
// 検証に失敗しても再試行せず、呼び出し側に一度だけ報告する。
type LoginService struct {
	// verifier は外部IDトークンの検証器。
	verifier Verifier
	// issuer はアプリケーショントークンの発行器。
	issuer *TokenIssuer
	// timeout は検証1回あたりの上限時間。
	timeout time.Duration
	// logger はログ出力先。
	logger zerolog.Logger
}

// NewLoginService はLoginServiceを生成する。
// timeoutが0以下の場合はconfig.DefaultVerifyTimeoutを使用する。
func NewLoginService(verifier Verifier, issuer *TokenIssuer, timeout time.Duration, logger zerolog.Logger) *LoginService {
	if timeout <= 0 {
		timeout = config.DefaultVerifyTimeout
	}
	return &LoginService{
		verifier: verifier,
		issuer:   issuer,
		timeout:  timeout,
		logger:   logger,
	}
}

// Login は生のIDトークンを検証し、成功した場合にアプリケーショントークンを発行する。
//
// トークンが空の場合は検証を行わずErrRequestValidationを返す。
// 検証に失敗した場合はErrInvalidToken、タイムアウトまたはキャンセルの場合は
// ErrVerificationAborted、署名鍵を取得できない場合はErrVerifierUnavailableを返す。
// いずれの場合もトークンは発行しない。
func (s *LoginService) Login(ctx context.Context, rawToken string) (LoginResult, error) {
	result := LoginResult{State: StateReceived, Path: []LoginState{StateReceived}}
	if strings.TrimSpace(rawToken) == "" {
		return s.reject(result, ErrRequestValidation), ErrRequestValidation
	}

	result = s.advance(result, StateVerifying)
	verifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	claims, err := s.verifier.Verify(verifyCtx, rawToken)
	cancel()
	if err != nil {
		if !errors.Is(err, ErrVerificationAborted) && !errors.Is(err, ErrVerifierUnavailable) {
			err = ErrInvalidToken
		}
		return s.reject(result, err), err
	}
	result.Claims = claims
	result = s.advance(result, StateVerified)

	// 検証後にキャンセルされた場合は発行しない
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("%w: %w", ErrVerificationAborted, err)
		return s.reject(result, err), err
	}

	result = s.advance(result, StateIssuing)
	token, err := s.issuer.Issue(claims)
	if err != nil {
		s.logger.Error().Err(err).Msg("アプリケーショントークンの発行に失敗しました")
		return s.reject(result, err), err
	}
	result.Token = token
	result = s.advance(result, StateIssued)

	s.logger.Info().
		Str("email", claims.Email).
		Str("role", token.Role.String()).
		Time("expires_at", token.ExpiresAt).
		Msg("アプリケーショントークンを発行しました")
	return result, nil
}

// advance は次の状態へ遷移する。
func (s *LoginService) advance(r LoginResult, next LoginState) LoginResult {
	s.logger.Debug().Stringer("from", r.State).Stringer("to", next).Msg("ログイン状態を遷移します")
	r.State = next
	r.Path = append(r.Path, next)
	return r
}

// reject は拒否状態へ遷移する。理由は記録するが、トークンは出力しない。
func (s *LoginService) reject(r LoginResult, reason error) LoginResult {
	s.logger.Warn().Stringer("from", r.State).AnErr("reason", reason).Msg("ログインを拒否しました")
	r.State = StateRejected
	r.Path = append(r.Path, StateRejected)
	r.Token = ApplicationToken{}
	return r
}
