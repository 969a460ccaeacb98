package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/gin-gonic/gin"
	"github.com/nao1215/projecthub/internal/config"
	"github.com/nao1215/projecthub/internal/db/dbtest"
	"github.com/nao1215/projecthub/internal/user"
)

// testSecret はテスト用のJWTシークレット。
const testSecret = "test-secret-key-for-api-tests"

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer はhttptestのサーバーとServerを束ねる。
type testServer struct {
	*httptest.Server
	srv *Server
}

// newTestServer はインメモリDBを使うテスト用サーバーを起動する。
func newTestServer(t *testing.T, environ map[string]string) *testServer {
	t.Helper()

	if environ == nil {
		environ = map[string]string{"JWT_SECRET": testSecret}
	}
	cfg, err := config.Parse(environ)
	if err != nil {
		t.Fatalf("config.Parse()でエラーが発生: %v", err)
	}

	fast := &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	srv, err := NewServer(cfg, dbtest.New(t),
		WithUserOptions(user.WithPasswordHasher(user.NewArgon2Hasher(fast))),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewServer()でエラーが発生: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, srv: srv}
}

// response はデコード済みのレスポンス。
type response struct {
	Status int
	Body   map[string]any
}

func (r response) data() map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	return d
}

func (r response) kind() string {
	k, _ := r.Body["error"].(string)
	return k
}

// do はJSONリクエストを送り、レスポンスをデコードする。
func (ts *testServer) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal()でエラーが発生: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("http.NewRequest()でエラーが発生: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %sでエラーが発生: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := response{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("レスポンスの読み込みに失敗: %v", err)
	}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out.Body); err != nil {
			t.Fatalf("レスポンスのデコードに失敗: %v: %s", err, raw)
		}
	}
	return out
}

// register はユーザーを登録し、アクセストークンとユーザーIDを返す。
func (ts *testServer) register(t *testing.T, username string) (string, int64) {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/users/register", "", map[string]any{
		"username":   username,
		"email":      username + "@example.com",
		"password":   "secret123",
		"first_name": "Taro",
		"last_name":  "Yamada",
	})
	if resp.Status != http.StatusCreated {
		t.Fatalf("登録のステータス = %d, want %d: %v", resp.Status, http.StatusCreated, resp.Body)
	}
	d := resp.data()
	u, _ := d["user"].(map[string]any)
	return d["token"].(string), int64(u["id"].(float64))
}

// superuser は管理者を作成してログインし、アクセストークンを返す。
func (ts *testServer) superuser(t *testing.T) string {
	t.Helper()
	_, err := ts.srv.users.CreateSuperuser(t.Context(), user.RegisterInput{
		Username:  "admin",
		Email:     "admin@example.com",
		Password:  "admin123",
		FirstName: "Admin",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("CreateSuperuser()でエラーが発生: %v", err)
	}
	resp := ts.do(t, http.MethodPost, "/api/users/login", "", map[string]any{
		"email": "admin@example.com", "password": "admin123",
	})
	if resp.Status != http.StatusOK {
		t.Fatalf("管理者のログインに失敗: %d %v", resp.Status, resp.Body)
	}
	return resp.data()["token"].(string)
}

// TestHealth は/healthを検証する。
func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	resp := ts.do(t, http.MethodGet, "/health", "", nil)
	if resp.Status != http.StatusOK || resp.Body["status"] != "ok" {
		t.Errorf("GET /health = %d %v", resp.Status, resp.Body)
	}
}

// TestAuthFlow は登録からトークン更新までの流れを検証する。
func TestAuthFlow(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	token, id := ts.register(t, "taro")

	t.Run("登録で得たトークンで本人情報を取得できること", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/users/me", token, nil)
		if resp.Status != http.StatusOK {
			t.Fatalf("ステータス = %d, want %d: %v", resp.Status, http.StatusOK, resp.Body)
		}
		if got := int64(resp.data()["id"].(float64)); got != id {
			t.Errorf("id = %d, want %d", got, id)
		}
		if _, ok := resp.data()["password"]; ok {
			t.Error("パスワードがレスポンスに含まれている")
		}
	})

	t.Run("同じメールアドレスでの登録は409になること", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/users/register", "", map[string]any{
			"username": "other", "email": "taro@example.com", "password": "secret123",
			"first_name": "A", "last_name": "B",
		})
		if resp.Status != http.StatusConflict || resp.kind() != kindConflict {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})

	t.Run("必須項目が欠けた登録は400になること", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/users/register", "", map[string]any{"username": "x"})
		if resp.Status != http.StatusBadRequest || resp.kind() != kindValidation {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})

	t.Run("誤ったパスワードでのログインは401になること", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/users/login", "", map[string]any{
			"email": "taro@example.com", "password": "wrong-password",
		})
		if resp.Status != http.StatusUnauthorized || resp.kind() != kindInvalidCredentials {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})

	t.Run("リフレッシュトークンで新しいトークンを取得できること", func(t *testing.T) {
		login := ts.do(t, http.MethodPost, "/api/users/login", "", map[string]any{
			"email": "taro@example.com", "password": "secret123",
		})
		refresh, _ := login.data()["refresh_token"].(string)
		if refresh == "" {
			t.Fatalf("refresh_tokenが空: %v", login.Body)
		}

		resp := ts.do(t, http.MethodPost, "/api/users/refresh-token", "", map[string]any{"refresh_token": refresh})
		if resp.Status != http.StatusOK || resp.data()["token"] == "" {
			t.Errorf("ステータス = %d, body = %v", resp.Status, resp.Body)
		}

		// リフレッシュトークンはアクセストークンとして使えない
		if got := ts.do(t, http.MethodGet, "/api/users/me", refresh, nil); got.kind() != "invalid_token" {
			t.Errorf("kind = %q, want invalid_token", got.kind())
		}
	})

	t.Run("パスワード変更後は新しいパスワードでログインできること", func(t *testing.T) {
		resp := ts.do(t, http.MethodPut, "/api/users/change-password", token, map[string]any{
			"current_password": "secret123", "new_password": "newsecret",
		})
		if resp.Status != http.StatusOK {
			t.Fatalf("ステータス = %d: %v", resp.Status, resp.Body)
		}
		login := ts.do(t, http.MethodPost, "/api/users/login", "", map[string]any{
			"email": "taro@example.com", "password": "newsecret",
		})
		if login.Status != http.StatusOK {
			t.Errorf("新しいパスワードでのログイン = %d", login.Status)
		}
	})
}

// TestAuthGate はAuth Gateの失敗種別がHTTPレスポンスに反映されることを検証する。
func TestAuthGate(t *testing.T) {
	t.Parallel()

	t.Run("トークンなしは401 unauthenticatedになること", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil)
		resp := ts.do(t, http.MethodGet, "/api/users/me", "", nil)
		if resp.Status != http.StatusUnauthorized || resp.kind() != "unauthenticated" {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})

	t.Run("不正なトークンは401 invalid_tokenになること", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil)
		resp := ts.do(t, http.MethodGet, "/api/projects", "not-a-jwt", nil)
		if resp.Status != http.StatusUnauthorized || resp.kind() != "invalid_token" {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})

	t.Run("シークレット未設定は500 configuration_errorになること", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, map[string]string{})
		resp := ts.do(t, http.MethodGet, "/api/users/me", "any-token", nil)
		if resp.Status != http.StatusInternalServerError || resp.kind() != "configuration_error" {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})

	t.Run("無効化されたユーザーは401 account_deactivatedになること", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil)
		admin := ts.superuser(t)
		token, id := ts.register(t, "hanako")

		if resp := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", id), admin, nil); resp.Status != http.StatusOK {
			t.Fatalf("削除のステータス = %d: %v", resp.Status, resp.Body)
		}
		resp := ts.do(t, http.MethodGet, "/api/users/me", token, nil)
		if resp.Status != http.StatusUnauthorized || resp.kind() != "account_deactivated" {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})

	t.Run("一般ユーザーの管理者APIは403 forbiddenになること", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil)
		token, _ := ts.register(t, "jiro")
		resp := ts.do(t, http.MethodGet, "/api/users", token, nil)
		if resp.Status != http.StatusForbidden || resp.kind() != "forbidden" {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})
}

// TestAdminUsers は管理者向けユーザーAPIを検証する。
func TestAdminUsers(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	admin := ts.superuser(t)
	_, id := ts.register(t, "saburo")
	ts.register(t, "shiro")

	t.Run("検索とページ情報付きの一覧が返ること", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/users?search=SABURO&limit=1", admin, nil)
		if resp.Status != http.StatusOK {
			t.Fatalf("ステータス = %d: %v", resp.Status, resp.Body)
		}
		users, _ := resp.Body["data"].([]any)
		if len(users) != 1 {
			t.Errorf("件数 = %d, want 1", len(users))
		}
		page, _ := resp.Body["pagination"].(map[string]any)
		if page["total"] != float64(1) || page["limit"] != float64(1) || page["has_more"] != false {
			t.Errorf("pagination = %v", page)
		}
	})

	t.Run("数値でないIDは400 invalid_idになること", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/users/abc", admin, nil)
		if resp.Status != http.StatusBadRequest || resp.kind() != kindInvalidID {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})

	t.Run("存在しないユーザーは404になること", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/users/9999", admin, nil)
		if resp.Status != http.StatusNotFound || resp.kind() != kindNotFound {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})

	t.Run("管理者はフラグを含めて更新できること", func(t *testing.T) {
		resp := ts.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d", id), admin, map[string]any{
			"first_name": "Saburo", "is_superuser": true,
		})
		if resp.Status != http.StatusOK {
			t.Fatalf("ステータス = %d: %v", resp.Status, resp.Body)
		}
		if resp.data()["first_name"] != "Saburo" || resp.data()["is_superuser"] != true {
			t.Errorf("data = %v", resp.data())
		}
	})
}

// TestProjects はプロジェクトAPIを検証する。
func TestProjects(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	token, owner := ts.register(t, "goro")

	created := ts.do(t, http.MethodPost, "/api/projects", token, map[string]any{
		"name": "Solar", "budget": 100.5, "start_date": "2025-01-01", "end_date": "2025-12-31",
	})
	if created.Status != http.StatusCreated {
		t.Fatalf("作成のステータス = %d: %v", created.Status, created.Body)
	}
	id := int64(created.data()["id"].(float64))

	t.Run("作成者がオーナーになること", func(t *testing.T) {
		if got := int64(created.data()["owner_id"].(float64)); got != owner {
			t.Errorf("owner_id = %d, want %d", got, owner)
		}
		if created.data()["status"] != "active" {
			t.Errorf("status = %v, want active", created.data()["status"])
		}
	})

	t.Run("未定義のステータスは400になること", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/projects", token, map[string]any{"name": "x", "status": "archived"})
		if resp.Status != http.StatusBadRequest || resp.kind() != kindValidation {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
		resp = ts.do(t, http.MethodGet, "/api/projects?status=archived", token, nil)
		if resp.Status != http.StatusBadRequest {
			t.Errorf("一覧のステータス = %d, want 400", resp.Status)
		}
	})

	t.Run("開始日が終了日より後の更新は400になること", func(t *testing.T) {
		resp := ts.do(t, http.MethodPut, fmt.Sprintf("/api/projects/%d", id), token, map[string]any{"start_date": "2026-06-01"})
		if resp.Status != http.StatusBadRequest {
			t.Errorf("ステータス = %d: %v", resp.Status, resp.Body)
		}
	})

	t.Run("集計はログイン時のみmineを含むこと", func(t *testing.T) {
		anonymous := ts.do(t, http.MethodGet, "/api/projects/stats", "", nil)
		if anonymous.Status != http.StatusOK || anonymous.data()["total"] != float64(1) {
			t.Fatalf("匿名の集計 = %d %v", anonymous.Status, anonymous.Body)
		}
		if _, ok := anonymous.data()["mine"]; ok {
			t.Error("匿名の集計にmineが含まれている")
		}

		// 不正なトークンは匿名として扱われる
		if resp := ts.do(t, http.MethodGet, "/api/projects/stats", "broken", nil); resp.Status != http.StatusOK {
			t.Errorf("不正なトークンでの集計 = %d", resp.Status)
		}

		mine := ts.do(t, http.MethodGet, "/api/projects/stats", token, nil)
		m, _ := mine.data()["mine"].(map[string]any)
		if m["total"] != float64(1) {
			t.Errorf("mine = %v", mine.data()["mine"])
		}
	})

	t.Run("自分のプロジェクト一覧が返ること", func(t *testing.T) {
		other, _ := ts.register(t, "rokuro")
		resp := ts.do(t, http.MethodGet, "/api/projects/my/projects", other, nil)
		if resp.Status != http.StatusOK {
			t.Fatalf("ステータス = %d", resp.Status)
		}
		if list, _ := resp.Body["data"].([]any); len(list) != 0 {
			t.Errorf("他人のプロジェクトが含まれている: %v", list)
		}
	})

	t.Run("削除後は404になること", func(t *testing.T) {
		if resp := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%d", id), token, nil); resp.Status != http.StatusOK {
			t.Fatalf("削除のステータス = %d: %v", resp.Status, resp.Body)
		}
		resp := ts.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d", id), token, nil)
		if resp.Status != http.StatusNotFound || resp.kind() != kindNotFound {
			t.Errorf("ステータス = %d, kind = %q", resp.Status, resp.kind())
		}
	})
}

// TestMetricsEndpoint は/metricsでHTTPメトリクスが公開されることを検証する。
func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/api/users/me", "", nil)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metricsでエラーが発生: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{"projecthub_http_requests_total", "projecthub_auth_failures_total", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("/metricsに%sが含まれていない", want)
		}
	}
}

// TestPanicIsLoggedAndCounted はパニックしたリクエストがリクエストログとメトリクスに残ることを検証する。
func TestPanicIsLoggedAndCounted(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse(map[string]string{"JWT_SECRET": testSecret})
	if err != nil {
		t.Fatalf("config.Parse()でエラーが発生: %v", err)
	}
	var logs bytes.Buffer
	srv, err := NewServer(cfg, dbtest.New(t), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	if err != nil {
		t.Fatalf("NewServer()でエラーが発生: %v", err)
	}
	srv.router.GET("/boom", func(*gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	if !strings.Contains(logs.String(), "path=/boom") || !strings.Contains(logs.String(), "status=500") {
		t.Errorf("リクエストログが出力されていない: %s", logs.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `projecthub_http_requests_total{method="GET",route="/boom",status="500"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("/metricsに%sが含まれていない", want)
	}
}
