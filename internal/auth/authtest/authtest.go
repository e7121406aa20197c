// Package authtest はGoogle IDトークンを模したテスト用の署名鍵とトークンを提供する。
package authtest

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	capjwt "github.com/hashicorp/cap/jwt"
)

const (
	// Audience はテスト用のOAuthクライアントID。
	Audience = "test-client.apps.googleusercontent.com"
	// Issuer はGoogleのIDトークンのiss。
	Issuer = "https://accounts.google.com"
)

// Provider はテスト用のIDプロバイダ。RSA鍵で署名し、その公開鍵だけを含む鍵セットを持つ。
type Provider struct {
	key    *rsa.PrivateKey
	keySet capjwt.KeySet
}

// NewProvider は新しいRSA鍵を生成してProviderを返す。
func NewProvider(t testing.TB) *Provider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("RSA鍵の生成に失敗: %v", err)
	}
	keySet, err := capjwt.NewStaticKeySet([]crypto.PublicKey{&key.PublicKey})
	if err != nil {
		t.Fatalf("鍵セットの生成に失敗: %v", err)
	}
	return &Provider{key: key, keySet: keySet}
}

// KeySet はProviderの公開鍵セットを返す。
func (p *Provider) KeySet() capjwt.KeySet {
	return p.keySet
}

// Sign は任意のクレームにRS256で署名する。
func (p *Provider) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.key)
	if err != nil {
		t.Fatalf("IDトークンの署名に失敗: %v", err)
	}
	return token
}

// Claims は有効なGoogle IDトークンのクレームを返す。
// 呼び出し側で値を書き換えて不正なトークンを作ることができる。
func Claims(email, name string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            Issuer,
		"aud":            Audience,
		"sub":            "1234567890",
		"email":          email,
		"email_verified": true,
		"name":           name,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

// IDToken は有効なGoogle IDトークンを返す。
func (p *Provider) IDToken(t testing.TB, email, name string) string {
	t.Helper()
	return p.Sign(t, Claims(email, name))
}

// ExpiredIDToken は1時間前に期限切れとなったGoogle IDトークンを返す。
func (p *Provider) ExpiredIDToken(t testing.TB, email, name string) string {
	t.Helper()

	claims := Claims(email, name)
	now := time.Now()
	claims["iat"] = now.Add(-2 * time.Hour).Unix()
	claims["exp"] = now.Add(-time.Hour).Unix()
	return p.Sign(t, claims)
}
