package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType はトークンの用途を表す。
type TokenType string

const (
	// TokenTypeAccess はAPI呼び出しに使う短命のアクセストークン。
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh はアクセストークンの再発行に使う長命のトークン。
	TokenTypeRefresh TokenType = "refresh"
)

const (
	// DefaultAccessTTL はアクセストークンの既定の有効期間。
	DefaultAccessTTL = 24 * time.Hour
	// DefaultRefreshTTL はリフレッシュトークンの既定の有効期間。
	DefaultRefreshTTL = 7 * 24 * time.Hour
	// DefaultIssuer はトークンの既定の発行者。
	DefaultIssuer = "projecthub"
)

var (
	// ErrTokenInvalid は署名不一致、形式不正、用途違いのトークンを表す。
	ErrTokenInvalid = errors.New("トークンが無効です")
	// ErrTokenExpired は有効期限切れのトークンを表す。
	ErrTokenExpired = errors.New("トークンの有効期限が切れています")
	// ErrSecretNotConfigured は署名用シークレットが未設定であることを表す。
	ErrSecretNotConfigured = errors.New("署名用シークレットが設定されていません")
)

// Claims はJWTトークンのクレーム（ペイロード）を表す。
// 認可判断には使わず、ユーザーストアを引き直すためのIDの運搬に使う。
type Claims struct {
	jwt.RegisteredClaims
	// UserID はユーザーの数値ID。
	UserID int64 `json:"user_id"`
	// Username は発行時点のユーザー名。
	Username string `json:"username"`
	// Email は発行時点のメールアドレス。
	Email string `json:"email"`
	// IsSuperuser は発行時点の管理者フラグ。
	IsSuperuser bool `json:"is_superuser"`
	// Type はトークンの用途。
	Type TokenType `json:"typ"`
}

// Codec はHS256によるトークンの署名と検証を行う。
type Codec struct {
	issuer string
	now    func() time.Time
}

// NewCodec は新しいCodecを生成する。issuerが空の場合はDefaultIssuerを使う。
func NewCodec(issuer string) *Codec {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Codec{issuer: issuer, now: time.Now}
}

// Sign はクレームに発行者・発行日時・有効期限を設定して署名する。
// 署名済みトークンと有効期限を返す。
func (c *Codec) Sign(claims Claims, secret string, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, ErrSecretNotConfigured
	}

	now := c.now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   strconv.FormatInt(claims.UserID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify はトークンの署名・有効期限・用途を検証してクレームを返す。
// 期限切れはErrTokenExpired、それ以外の失敗はErrTokenInvalidをラップして返す。
func (c *Codec) Verify(tokenString, secret string, typ TokenType) (*Claims, error) {
	if secret == "" {
		return nil, ErrSecretNotConfigured
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.Type != typ {
		return nil, fmt.Errorf("%w: 用途が%qではありません", ErrTokenInvalid, typ)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: ユーザーIDが含まれていません", ErrTokenInvalid)
	}
	return claims, nil
}

// TokenConfig はトークン発行の設定。
type TokenConfig struct {
	// AccessSecret はアクセストークンの署名用シークレット。
	AccessSecret string
	// RefreshSecret はリフレッシュトークンの署名用シークレット。空の場合はAccessSecretを使う。
	RefreshSecret string
	// AccessTTL はアクセストークンの有効期間。
	AccessTTL time.Duration
	// RefreshTTL はリフレッシュトークンの有効期間。
	RefreshTTL time.Duration
}

// TokenPair はログイン・登録・リフレッシュで返すトークンの組。
type TokenPair struct {
	// AccessToken はアクセストークン。
	AccessToken string `json:"token"`
	// RefreshToken はリフレッシュトークン。
	RefreshToken string `json:"refresh_token"`
	// TokenType は常に"Bearer"。
	TokenType string `json:"token_type"`
	// ExpiresAt はアクセストークンの有効期限。
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenIssuer はアクセストークンとリフレッシュトークンを発行する。
// 発行はログイン・リフレッシュ側の責務であり、Gateは検証のみ行う。
type TokenIssuer struct {
	codec *Codec
	cfg   TokenConfig
}

// NewTokenIssuer は新しいTokenIssuerを生成する。
// 未設定の有効期間とリフレッシュ用シークレットには既定値を補う。
func NewTokenIssuer(codec *Codec, cfg TokenConfig) *TokenIssuer {
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &TokenIssuer{codec: codec, cfg: cfg}
}

// IssuePair はPrincipalに対してアクセストークンとリフレッシュトークンを発行する。
func (i *TokenIssuer) IssuePair(p Principal) (TokenPair, error) {
	claims := Claims{
		UserID:      p.ID,
		Username:    p.Username,
		Email:       p.Email,
		IsSuperuser: p.IsSuperuser,
	}

	claims.Type = TokenTypeAccess
	access, expiresAt, err := i.codec.Sign(claims, i.cfg.AccessSecret, i.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("アクセストークンの発行に失敗: %w", err)
	}

	claims.Type = TokenTypeRefresh
	refresh, _, err := i.codec.Sign(claims, i.cfg.RefreshSecret, i.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("リフレッシュトークンの発行に失敗: %w", err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

// VerifyRefresh はリフレッシュトークンを検証してクレームを返す。
func (i *TokenIssuer) VerifyRefresh(token string) (*Claims, error) {
	return i.codec.Verify(token, i.cfg.RefreshSecret, TokenTypeRefresh)
}
