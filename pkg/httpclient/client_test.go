package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Body はリクエストボディ。
	Body []byte
	// Headers はリクエストヘッダー。
	Headers http.Header
}

// testPayload はテスト用のリクエスト/レスポンスペイロード。
type testPayload struct {
	// Name はテスト用の名前フィールド。
	Name string `json:"name"`
	// Value はテスト用の値フィールド。
	Value int `json:"value"`
}

// writeData はAPIの成功レスポンスを書き込む。
func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"message": "ok", "data": data})
}

// writeError はAPIのエラーレスポンスを書き込む。
func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("クライアントが正常に生成されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080")
		if client.baseURL != "http://localhost:8080" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8080")
		}
		if client.httpClient.Timeout.Seconds() != 30 {
			t.Errorf("Timeout = %v, want 30s", client.httpClient.Timeout)
		}
	})

	t.Run("オプションでトークンとHTTPクライアントを設定できること", func(t *testing.T) {
		t.Parallel()

		hc := &http.Client{}
		client := New("http://localhost:8080", WithHTTPClient(hc), WithTokens(Tokens{AccessToken: "a"}))
		if client.httpClient != hc {
			t.Error("httpClientが差し替えられていない")
		}
		if client.Tokens().AccessToken != "a" {
			t.Errorf("AccessToken = %q, want a", client.Tokens().AccessToken)
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("dataを取り出し、Bearerトークンを付与すること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received.Method = r.Method
			received.Path = r.URL.Path
			received.Body, _ = io.ReadAll(r.Body)
			received.Headers = r.Header
			writeData(w, http.StatusCreated, testPayload{Name: "response", Value: 200})
		}))
		defer ts.Close()

		client := New(ts.URL, WithTokens(Tokens{AccessToken: "access"}))
		var result testPayload
		if err := client.PostJSON(context.Background(), "/api/projects", testPayload{Name: "request", Value: 100}, &result); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		if received.Method != http.MethodPost || received.Path != "/api/projects" {
			t.Errorf("%s %s, want POST /api/projects", received.Method, received.Path)
		}
		var sent testPayload
		if err := json.Unmarshal(received.Body, &sent); err != nil || sent.Name != "request" {
			t.Errorf("送信したボディ = %s", received.Body)
		}
		if got := received.Headers.Get("Authorization"); got != "Bearer access" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer access")
		}
		if result != (testPayload{Name: "response", Value: 200}) {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("エラーレスポンスはAPIErrorになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusConflict, "conflict", "メールアドレスは既に登録されています")
		}))
		defer ts.Close()

		err := New(ts.URL).PostJSON(context.Background(), "/api/users/register", testPayload{}, nil)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *APIError", err)
		}
		if apiErr.Status != http.StatusConflict || apiErr.Kind != "conflict" || apiErr.Message == "" {
			t.Errorf("APIError = %+v", apiErr)
		}
	})

	t.Run("キャンセルされたコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeData(w, http.StatusOK, nil)
		}))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // 即座にキャンセル

		if err := New(ts.URL).PostJSON(ctx, "/api/projects", testPayload{}, nil); err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestGetJSON はGetJSON関数を検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("GETリクエストにリクエストボディが含まれないこと", func(t *testing.T) {
		t.Parallel()

		var receivedBody []byte
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			receivedBody, _ = io.ReadAll(r.Body)
			writeData(w, http.StatusOK, testPayload{Name: "ok", Value: 1})
		}))
		defer ts.Close()

		var result testPayload
		if err := New(ts.URL).GetJSON(context.Background(), "/api/projects/1", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if len(receivedBody) != 0 {
			t.Errorf("GETリクエストにボディが含まれている: %q", string(receivedBody))
		}
		if result.Name != "ok" {
			t.Errorf("result.Name = %q, want ok", result.Name)
		}
	})

	t.Run("不正なJSONレスポンスでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{invalid json}`))
		}))
		defer ts.Close()

		var result testPayload
		if err := New(ts.URL).GetJSON(context.Background(), "/api/test", &result); err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("接続できないサーバーに対してエラーが返ること", func(t *testing.T) {
		t.Parallel()

		var result testPayload
		if err := New("http://127.0.0.1:1").GetJSON(context.Background(), "/api/test", &result); err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestTokenRefresh はログインとtoken_expired時の再送を検証する。
func TestTokenRefresh(t *testing.T) {
	t.Parallel()

	// newAuthServer は"fresh"だけを有効なアクセストークンとして扱うサーバーを返す。
	newAuthServer := func(t *testing.T, refreshes *atomic.Int32) *httptest.Server {
		t.Helper()
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, _ *http.Request) {
			writeData(w, http.StatusOK, map[string]any{"token": "stale", "refresh_token": "r1", "token_type": "bearer"})
		})
		mux.HandleFunc("POST /api/users/refresh-token", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["refresh_token"] != "r1" {
				writeError(w, http.StatusUnauthorized, "invalid_token", "リフレッシュトークンが無効です")
				return
			}
			refreshes.Add(1)
			writeData(w, http.StatusOK, map[string]any{"token": "fresh", "refresh_token": "r2", "token_type": "bearer"})
		})
		mux.HandleFunc("PUT /api/projects/1", func(w http.ResponseWriter, r *http.Request) {
			switch r.Header.Get("Authorization") {
			case "Bearer fresh":
				var body testPayload
				json.NewDecoder(r.Body).Decode(&body)
				writeData(w, http.StatusOK, body)
			case "Bearer stale":
				writeError(w, http.StatusUnauthorized, "token_expired", "トークンの有効期限が切れています")
			default:
				writeError(w, http.StatusUnauthorized, "invalid_token", "トークンが無効です")
			}
		})
		ts := httptest.NewServer(mux)
		t.Cleanup(ts.Close)
		return ts
	}

	t.Run("期限切れの場合は一度だけ更新して再送すること", func(t *testing.T) {
		t.Parallel()

		var refreshes atomic.Int32
		ts := newAuthServer(t, &refreshes)
		client := New(ts.URL)
		if _, err := client.Login(context.Background(), "a@example.com", "secret123"); err != nil {
			t.Fatalf("Login()でエラーが発生: %v", err)
		}

		var result testPayload
		if err := client.PutJSON(context.Background(), "/api/projects/1", testPayload{Name: "retry"}, &result); err != nil {
			t.Fatalf("PutJSON()でエラーが発生: %v", err)
		}
		if result.Name != "retry" {
			t.Errorf("再送時のボディが失われている: %+v", result)
		}
		if refreshes.Load() != 1 {
			t.Errorf("更新回数 = %d, want 1", refreshes.Load())
		}
		if got := client.Tokens(); got.AccessToken != "fresh" || got.RefreshToken != "r2" {
			t.Errorf("Tokens() = %+v", got)
		}
	})

	t.Run("invalid_tokenでは更新せずAPIErrorを返すこと", func(t *testing.T) {
		t.Parallel()

		var refreshes atomic.Int32
		ts := newAuthServer(t, &refreshes)
		client := New(ts.URL, WithTokens(Tokens{AccessToken: "broken", RefreshToken: "r1"}))

		err := client.PutJSON(context.Background(), "/api/projects/1", testPayload{}, nil)
		if !IsKind(err, "invalid_token") {
			t.Errorf("error = %v, want invalid_token", err)
		}
		if refreshes.Load() != 0 {
			t.Errorf("更新回数 = %d, want 0", refreshes.Load())
		}
	})

	t.Run("リフレッシュトークンがない場合はRefreshがエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		if _, err := New("http://127.0.0.1:1").Refresh(context.Background()); err == nil {
			t.Fatal("Refresh()がエラーを返すべきだが、nilが返った")
		}
	})
}
