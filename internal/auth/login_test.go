package auth

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nao1215/aida/internal/auth/authtest"
)

// stubVerifier は固定の結果を返すVerifier。
type stubVerifier struct {
	claims IdentityClaims
	err    error
	calls  atomic.Int32
	// wait が真の場合、コンテキストが終了するまで待つ
	wait bool
}

func (s *stubVerifier) Verify(ctx context.Context, _ string) (IdentityClaims, error) {
	s.calls.Add(1)
	if s.wait {
		<-ctx.Done()
		return IdentityClaims{}, ErrVerificationAborted
	}
	return s.claims, s.err
}

// TestLoginService_Login はLoginService.Loginを検証する。
func TestLoginService_Login(t *testing.T) {
	t.Parallel()

	provider := authtest.NewProvider(t)

	t.Run("有効なトークンでIssuedまで遷移しトークンが発行されること", func(t *testing.T) {
		t.Parallel()

		var logs bytes.Buffer
		svc := NewLoginService(newTestVerifier(t, provider), newTestIssuer(t, time.Now()), time.Second, zerolog.New(&logs))

		raw := provider.IDToken(t, "alice@example.com", "Alice")
		result, err := svc.Login(context.Background(), raw)
		if err != nil {
			t.Fatalf("Login()でエラーが発生: %v", err)
		}

		wantPath := []LoginState{StateReceived, StateVerifying, StateVerified, StateIssuing, StateIssued}
		if !reflect.DeepEqual(result.Path, wantPath) {
			t.Errorf("Path = %v, want %v", result.Path, wantPath)
		}
		if result.Token.Value == "" {
			t.Error("トークンが発行されていない")
		}
		if result.Token.Role != RoleUser {
			t.Errorf("Role = %q, want %q", result.Token.Role, RoleUser)
		}
		if strings.Contains(logs.String(), raw) || strings.Contains(logs.String(), result.Token.Value) {
			t.Error("ログにトークンが含まれている")
		}
	})

	t.Run("特権アドレスのトークンでAdminロールが発行されること", func(t *testing.T) {
		t.Parallel()

		svc := NewLoginService(newTestVerifier(t, provider), newTestIssuer(t, time.Now()), time.Second, zerolog.Nop())
		result, err := svc.Login(context.Background(), provider.IDToken(t, testAdminEmail, "Owner"))
		if err != nil {
			t.Fatalf("Login()でエラーが発生: %v", err)
		}
		if result.Token.Role != RoleAdmin {
			t.Errorf("Role = %q, want %q", result.Token.Role, RoleAdmin)
		}
	})

	t.Run("空のトークンは検証せずErrRequestValidationになること", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"", "   "} {
			verifier := &stubVerifier{}
			svc := NewLoginService(verifier, newTestIssuer(t, time.Now()), time.Second, zerolog.Nop())
			result, err := svc.Login(context.Background(), raw)
			if !errors.Is(err, ErrRequestValidation) {
				t.Errorf("Login(%q) error = %v, want %v", raw, err, ErrRequestValidation)
			}
			if result.State != StateRejected {
				t.Errorf("State = %v, want %v", result.State, StateRejected)
			}
			if verifier.calls.Load() != 0 {
				t.Errorf("Verifyの呼び出し回数 = %d, want 0", verifier.calls.Load())
			}
		}
	})

	t.Run("期限切れのトークンはRejectedになりトークンが発行されないこと", func(t *testing.T) {
		t.Parallel()

		var logs bytes.Buffer
		svc := NewLoginService(newTestVerifier(t, provider), newTestIssuer(t, time.Now()), time.Second, zerolog.New(&logs))

		raw := provider.ExpiredIDToken(t, "alice@example.com", "Alice")
		result, err := svc.Login(context.Background(), raw)
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Login() error = %v, want %v", err, ErrInvalidToken)
		}
		wantPath := []LoginState{StateReceived, StateVerifying, StateRejected}
		if !reflect.DeepEqual(result.Path, wantPath) {
			t.Errorf("Path = %v, want %v", result.Path, wantPath)
		}
		if result.Token != (ApplicationToken{}) {
			t.Errorf("Token = %v, want empty", result.Token)
		}
		if strings.Contains(logs.String(), raw) {
			t.Error("ログにIDトークンが含まれている")
		}
	})

	t.Run("検証器の任意のエラーはErrInvalidTokenに統一されること", func(t *testing.T) {
		t.Parallel()

		verifier := &stubVerifier{err: errors.New("signature mismatch for token abc.def.ghi")}
		svc := NewLoginService(verifier, newTestIssuer(t, time.Now()), time.Second, zerolog.Nop())
		_, err := svc.Login(context.Background(), "abc.def.ghi")
		if err != ErrInvalidToken {
			t.Errorf("Login() error = %v, want %v", err, ErrInvalidToken)
		}
		if verifier.calls.Load() != 1 {
			t.Errorf("Verifyの呼び出し回数 = %d, want 1", verifier.calls.Load())
		}
	})

	t.Run("署名鍵を取得できない場合ErrVerifierUnavailableのまま返すこと", func(t *testing.T) {
		t.Parallel()

		verifier := &stubVerifier{err: ErrVerifierUnavailable}
		svc := NewLoginService(verifier, newTestIssuer(t, time.Now()), time.Second, zerolog.Nop())
		result, err := svc.Login(context.Background(), "abc.def.ghi")
		if !errors.Is(err, ErrVerifierUnavailable) {
			t.Fatalf("Login() error = %v, want %v", err, ErrVerifierUnavailable)
		}
		if result.State != StateRejected {
			t.Errorf("State = %v, want %v", result.State, StateRejected)
		}
		if result.Token.Value != "" {
			t.Error("拒否したログインでトークンが発行された")
		}
	})

	t.Run("検証がタイムアウトした場合ErrVerificationAbortedになること", func(t *testing.T) {
		t.Parallel()

		verifier := &stubVerifier{wait: true}
		svc := NewLoginService(verifier, newTestIssuer(t, time.Now()), 10*time.Millisecond, zerolog.Nop())
		result, err := svc.Login(context.Background(), "raw-token")
		if !errors.Is(err, ErrVerificationAborted) {
			t.Fatalf("Login() error = %v, want %v", err, ErrVerificationAborted)
		}
		if result.State != StateRejected {
			t.Errorf("State = %v, want %v", result.State, StateRejected)
		}
		if result.Token.Value != "" {
			t.Error("中断されたのにトークンが発行された")
		}
	})

	t.Run("検証後にキャンセルされた場合トークンが発行されないこと", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		verifier := &cancelingVerifier{cancel: cancel}
		svc := NewLoginService(verifier, newTestIssuer(t, time.Now()), time.Second, zerolog.Nop())
		result, err := svc.Login(ctx, "raw-token")
		if !errors.Is(err, ErrVerificationAborted) {
			t.Fatalf("Login() error = %v, want %v", err, ErrVerificationAborted)
		}
		wantPath := []LoginState{StateReceived, StateVerifying, StateVerified, StateRejected}
		if !reflect.DeepEqual(result.Path, wantPath) {
			t.Errorf("Path = %v, want %v", result.Path, wantPath)
		}
		if result.Token.Value != "" {
			t.Error("キャンセルされたのにトークンが発行された")
		}
	})
}

// cancelingVerifier は検証に成功した直後に呼び出し元のコンテキストをキャンセルする。
type cancelingVerifier struct {
	cancel context.CancelFunc
}

func (c *cancelingVerifier) Verify(_ context.Context, _ string) (IdentityClaims, error) {
	c.cancel()
	return IdentityClaims{Email: "alice@example.com"}, nil
}

// TestLoginState_String はLoginState.Stringを検証する。
func TestLoginState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state LoginState
		want  string
	}{
		{StateReceived, "Received"},
		{StateVerifying, "Verifying"},
		{StateVerified, "Verified"},
		{StateIssuing, "Issuing"},
		{StateIssued, "Issued"},
		{StateRejected, "Rejected"},
		{LoginState(99), "LoginState(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("LoginState(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
		if got, want := tt.state.Terminal(), tt.state == StateIssued || tt.state == StateRejected; got != want {
			t.Errorf("LoginState(%d).Terminal() = %v, want %v", int(tt.state), got, want)
		}
	}
}
