package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/projecthub/internal/auth"
	"github.com/nao1215/projecthub/internal/config"
	"github.com/nao1215/projecthub/internal/db"
	"github.com/nao1215/projecthub/internal/project"
	"github.com/nao1215/projecthub/internal/user"
	"github.com/nao1215/projecthub/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownTimeout は停止要求から処理中のリクエスト完了を待つ最大時間。
const shutdownTimeout = 10 * time.Second

// Server はprojecthubのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// db はデータベース接続。ヘルスチェックに使う。
	db *sql.DB
	// gate はBearerトークンから主体を解決する。
	gate *auth.Gate
	// users はユーザー関連のユースケース。
	users *user.Service
	// projects はプロジェクト関連のユースケース。
	projects *project.Service
	// registry は/metricsで公開するPrometheusレジストリ。
	registry *prometheus.Registry
	// logger はリクエストログの出力先。
	logger *slog.Logger
}

// Option はServerの設定を変更する。
type Option func(*serverOptions)

type serverOptions struct {
	userOpts []user.Option
	logger   *slog.Logger
}

// WithUserOptions はuser.Serviceの生成時に渡すOptionを指定する。
func WithUserOptions(opts ...user.Option) Option {
	return func(o *serverOptions) { o.userOpts = append(o.userOpts, opts...) }
}

// WithLogger はリクエストログの出力先を指定する。
func WithLogger(logger *slog.Logger) Option {
	return func(o *serverOptions) { o.logger = logger }
}

// NewServer は設定とDB接続からサーバーを組み立てる。
// DBはマイグレーション済みである必要がある。
func NewServer(cfg config.Config, sqlDB *sql.DB, opts ...Option) (*Server, error) {
	o := serverOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := registerValidations(); err != nil {
		return nil, fmt.Errorf("バリデーションルールの登録に失敗: %w", err)
	}

	queries := db.New(sqlDB)
	store := user.NewStore(sqlDB)
	codec := auth.NewCodec(cfg.JWTIssuer)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(sqlDB, "projecthub"),
	)

	s := &Server{
		router:   gin.New(),
		port:     cfg.Port,
		db:       sqlDB,
		gate:     auth.NewGate(cfg.JWTSecret, codec, store),
		users:    user.NewService(store, auth.NewTokenIssuer(codec, cfg.TokenConfig()), o.userOpts...),
		projects: project.NewService(queries),
		registry: registry,
		logger:   o.logger,
	}

	metrics := middleware.NewMetrics(registry)
	// Recoveryはパニックしたリクエストもログとメトリクスに残るようLoggerとMetricsの内側に置く
	s.router.Use(
		middleware.RequestID(),
		middleware.Logger(s.logger),
		metrics.Handler(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)
	s.setupRoutes()

	return s, nil
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされたら処理中のリクエストを待って停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動します", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	authenticate := middleware.Authenticate(s.gate)
	superuser := middleware.RequireRole(auth.CapabilitySuperuser)

	s.router.GET("/health", s.handleHealth())
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	users := s.router.Group("/api/users")
	{
		// 認証不要
		users.POST("/register", s.handleRegister())
		users.POST("/login", s.handleLogin())
		users.POST("/refresh-token", s.handleRefreshToken())

		// 本人
		users.GET("/me", authenticate, s.handleCurrentUser())
		users.PUT("/profile", authenticate, s.handleUpdateProfile())
		users.PUT("/change-password", authenticate, s.handleChangePassword())

		// 管理者
		users.GET("", authenticate, superuser, s.handleListUsers())
		users.POST("/superuser", authenticate, superuser, s.handleCreateSuperuser())
		users.GET("/:id", authenticate, superuser, s.handleGetUser())
		users.PUT("/:id", authenticate, superuser, s.handleUpdateUser())
		users.DELETE("/:id", authenticate, superuser, s.handleDeleteUser())
	}

	projects := s.router.Group("/api/projects")
	{
		projects.GET("/stats", middleware.AuthenticateOptional(s.gate), s.handleProjectStats())

		projects.GET("", authenticate, s.handleListProjects())
		projects.POST("", authenticate, s.handleCreateProject())
		projects.GET("/my/projects", authenticate, s.handleListMyProjects())
		projects.GET("/my/stats", authenticate, s.handleMyProjectStats())
		projects.GET("/:id", authenticate, s.handleGetProject())
		projects.PUT("/:id", authenticate, s.handleUpdateProject())
		projects.DELETE("/:id", authenticate, s.handleDeleteProject())
	}
}

// handleHealth はDBへの疎通を含むヘルスチェックを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.logger.ErrorContext(ctx, "ヘルスチェックでDB疎通に失敗しました", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "projecthub"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "projecthub"})
	}
}
