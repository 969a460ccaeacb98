package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// kindTokenExpired はアクセストークンの期限切れを表すエラー種別。
const kindTokenExpired = "token_expired"

// APIError はAPIが返したエラーレスポンス。
type APIError struct {
	// Status はHTTPステータスコード。
	Status int
	// Kind はレスポンスの"error"フィールド。
	Kind string
	// Message はレスポンスの"message"フィールド。
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("APIエラー: status=%d, kind=%s, message=%s", e.Status, e.Kind, e.Message)
}

// IsKind はerrがkindを持つ*APIErrorかどうかを返す。
func IsKind(err error, kind string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// Tokens はログインまたはリフレッシュで得たトークン。
type Tokens struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Client はprojecthub APIのクライアント。複数のgoroutineから利用できる。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先のベースURL。
	baseURL string

	mu     sync.Mutex
	tokens Tokens
}

// Option はClientの設定を変更する。
type Option func(*Client)

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokens は保存済みのトークンを設定する。
func WithTokens(t Tokens) Option {
	return func(c *Client) { c.tokens = t }
}

// New は新しいクライアントを生成する。
// baseURLには接続先のベースURL（例: "http://localhost:8080"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens は現在保持しているトークンを返す。
func (c *Client) Tokens() Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *Client) setTokens(t Tokens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = t
}

// Login はメールアドレスとパスワードでログインし、得たトークンを保持する。
func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	var t Tokens
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/users/login", body, "", &t); err != nil {
		return Tokens{}, fmt.Errorf("ログインに失敗: %w", err)
	}
	c.setTokens(t)
	return t, nil
}

// Refresh は保持しているリフレッシュトークンでトークンを更新する。
func (c *Client) Refresh(ctx context.Context) (Tokens, error) {
	refresh := c.Tokens().RefreshToken
	if refresh == "" {
		return Tokens{}, errors.New("リフレッシュトークンがありません")
	}

	var t Tokens
	body := map[string]string{"refresh_token": refresh}
	if err := c.send(ctx, http.MethodPost, "/api/users/refresh-token", body, "", &t); err != nil {
		return Tokens{}, fmt.Errorf("トークンの更新に失敗: %w", err)
	}
	c.setTokens(t)
	return t, nil
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスの"data"をresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result)
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// レスポンスの"data"をresultにデシリアライズする。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

// PutJSON は指定パスにJSONボディでPUTリクエストを送信する。
func (c *Client) PutJSON(ctx context.Context, path string, body any, result any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, result)
}

// Delete は指定パスにDELETEリクエストを送信する。
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// doJSON は認証付きリクエストを送信する。
// token_expiredで失敗した場合はトークンを更新して一度だけ再送する。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	err := c.send(ctx, method, path, body, c.Tokens().AccessToken, result)
	if !IsKind(err, kindTokenExpired) || c.Tokens().RefreshToken == "" {
		return err
	}
	if _, refreshErr := c.Refresh(ctx); refreshErr != nil {
		return errors.Join(err, refreshErr)
	}
	return c.send(ctx, method, path, body, c.Tokens().AccessToken, result)
}

// envelope はAPIの共通レスポンス。
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// send はJSON形式のHTTPリクエストを実行する共通処理。
func (c *Client) send(ctx context.Context, method, path string, body any, token string, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み込みに失敗: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Kind: env.Error, Message: env.Message}
		if decodeErr != nil {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", decodeErr)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
	}
	return nil
}
