package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims はアプリケーショントークンのクレーム（ペイロード）を表す。
type JWTClaims struct {
	jwt.RegisteredClaims
	// Email は検証済みのメールアドレス。
	Email string `json:"Email"`
	// Name はユーザーの表示名。
	Name string `json:"Name"`
	// Role はユーザーのロール。
	Role string `json:"role"`
}

// JWTConfig はトークンの署名と検証に使用する設定。
type JWTConfig struct {
	// Secret はHS256の署名鍵。
	Secret []byte
	// Issuer は発行者（iss）。
	Issuer string
	// Audience は対象者（aud）。
	Audience string
}

// コンテキストキー。
const (
	contextKeyEmail = "email"
	contextKeyName  = "name"
	contextKeyRole  = "role"
)

// errEmptySecret は署名鍵が設定されていないことを表す。
var errEmptySecret = errors.New("JWT署名鍵が設定されていません")

// SignJWT はクレームにHS256で署名したトークン文字列を返す。
// 署名鍵が空の場合は署名せずにエラーを返す。
func SignJWT(cfg JWTConfig, claims JWTClaims) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", errEmptySecret
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ParseJWT はトークンの署名、アルゴリズム、発行者、対象者、有効期限を検証してクレームを返す。
func ParseJWT(cfg JWTConfig, tokenString string) (*JWTClaims, error) {
	if len(cfg.Secret) == 0 {
		return nil, errEmptySecret
	}
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("JWTトークンの検証に失敗: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("JWTトークンが無効です")
	}
	return claims, nil
}

// JWTAuth はBearerトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "email"、"name"、"role" を設定する。
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithProblem(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			AbortWithProblem(c, http.StatusUnauthorized, "Bearer token is required")
			return
		}

		claims, err := ParseJWT(cfg, tokenString)
		if err != nil {
			AbortWithProblem(c, http.StatusUnauthorized, "Invalid access token")
			return
		}

		c.Set(contextKeyEmail, claims.Email)
		c.Set(contextKeyName, claims.Name)
		c.Set(contextKeyRole, claims.Role)
		c.Next()
	}
}

// GetEmail はGinコンテキストからメールアドレスを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetEmail(c *gin.Context) string {
	return c.GetString(contextKeyEmail)
}

// GetName はGinコンテキストから表示名を取得する。
func GetName(c *gin.Context) string {
	return c.GetString(contextKeyName)
}

// GetRole はGinコンテキストからロールを取得する。
func GetRole(c *gin.Context) string {
	return c.GetString(contextKeyRole)
}
