// Package auth 解析请求所属用户：配置了密钥时校验 Bearer JWT，否则信任网关转发的 x-user-id。
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HeaderUserID 为网关转发用户标识的请求头。
const HeaderUserID = "x-user-id"

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Config 鉴权配置。
type Config struct {
	JWTSecret string `yaml:"jwt_secret" json:"jwt_secret"`
	Issuer    string `yaml:"issuer" json:"issuer"`
}

// Resolver 从请求中解析用户 ID。
type Resolver struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewResolver 创建 Resolver。
func NewResolver(cfg Config) *Resolver {
	return &Resolver{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, now: time.Now}
}

// Owner 返回请求的用户 ID。
func (r *Resolver) Owner(req *http.Request) (string, error) {
	if len(r.secret) == 0 {
		owner := strings.TrimSpace(req.Header.Get(HeaderUserID))
		if owner == "" {
			return "", ErrMissingCredentials
		}
		return owner, nil
	}

	header := req.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", ErrMissingCredentials
	}
	return r.parse(strings.TrimSpace(raw))
}

func (r *Resolver) parse(raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// IssueToken 为用户签发 HS256 令牌，主要用于本地调试。
func (r *Resolver) IssueToken(owner string, ttl time.Duration) (string, error) {
	if len(r.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := r.now()
	claims := jwt.RegisteredClaims{
		Subject:   owner,
		Issuer:    r.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}

type ctxKey struct{}

// WithOwner 将用户 ID 写入上下文。
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// OwnerFromContext 读取用户 ID。
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ctxKey{}).(string)
	return owner, ok && owner != ""
}
