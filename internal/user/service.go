package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nao1215/projecthub/internal/auth"
	"github.com/nao1215/projecthub/internal/db"
	"golang.org/x/sync/errgroup"
)

// emailPattern はメールアドレスとして受け入れる最低限の形式。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Username   string  `json:"username" binding:"required,max=50"`
	Email      string  `json:"email" binding:"required,max=255"`
	Password   string  `json:"password" binding:"required"`
	FirstName  string  `json:"first_name" binding:"required,max=100"`
	MiddleName *string `json:"middle_name" binding:"omitempty,max=100"`
	LastName   string  `json:"last_name" binding:"required,max=100"`
}

// LoginInput はログインの入力。
type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ProfileInput は本人によるプロフィール更新の入力。nilの項目は変更しない。
// middle_nameに空文字列を指定すると削除する。
type ProfileInput struct {
	Username   *string `json:"username" binding:"omitempty,min=1,max=50"`
	Email      *string `json:"email" binding:"omitempty,max=255"`
	FirstName  *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	MiddleName *string `json:"middle_name" binding:"omitempty,max=100"`
	LastName   *string `json:"last_name" binding:"omitempty,min=1,max=100"`
}

// UpdateInput は管理者によるユーザー更新の入力。nilの項目は変更しない。
type UpdateInput struct {
	ProfileInput
	Password    *string `json:"password"`
	IsSuperuser *bool   `json:"is_superuser"`
	IsActive    *bool   `json:"is_active"`
}

// ListParams はユーザー一覧の検索条件。
type ListParams struct {
	Skip        int
	Limit       int
	Search      string
	IsActive    *bool
	IsSuperuser *bool
}

// ListResult はユーザー一覧の結果。
type ListResult struct {
	Users []User
	Total int64
	Page  db.Page
}

// AuthResult は登録・ログイン・リフレッシュの結果。
type AuthResult struct {
	User User `json:"user"`
	auth.TokenPair
}

// Service はユーザー関連のユースケースを提供する。
type Service struct {
	store  *Store
	tokens *auth.TokenIssuer
	hasher PasswordHasher
	now    func() time.Time
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithPasswordHasher はパスワードハッシュの実装を差し替える。
func WithPasswordHasher(h PasswordHasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithClock は現在時刻の取得方法を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService は新しいServiceを生成する。
func NewService(store *Store, tokens *auth.TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		hasher: NewArgon2Hasher(nil),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register は一般ユーザーを登録し、トークンを発行する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	u, err := s.create(ctx, in, false)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(u)
}

// CreateSuperuser は管理者ユーザーを作成する。トークンは発行しない。
func (s *Service) CreateSuperuser(ctx context.Context, in RegisterInput) (User, error) {
	return s.create(ctx, in, true)
}

func (s *Service) create(ctx context.Context, in RegisterInput, superuser bool) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if in.Username == "" || in.Email == "" || in.Password == "" || in.FirstName == "" || in.LastName == "" {
		return User{}, fmt.Errorf("%w: username, email, password, first_name, last_nameは必須です", ErrValidation)
	}
	if !emailPattern.MatchString(in.Email) {
		return User{}, ErrInvalidEmail
	}
	if err := validatePassword(in.Password); err != nil {
		return User{}, err
	}
	if err := s.ensureUnique(ctx, in.Email, in.Username); err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, err
	}

	row, err := s.store.q.CreateUser(ctx, db.CreateUserParams{
		Username:    in.Username,
		Email:       in.Email,
		Password:    hash,
		FirstName:   in.FirstName,
		MiddleName:  toNullString(in.MiddleName),
		LastName:    in.LastName,
		IsSuperuser: superuser,
		IsActive:    true,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		if dup := conflict(err); dup != nil {
			return User{}, dup
		}
		return User{}, fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return fromRow(row), nil
}

// ensureUnique はメールアドレス、ユーザー名の順に重複を確認する。空の値は確認しない。
func (s *Service) ensureUnique(ctx context.Context, email, username string) error {
	if email != "" {
		taken, err := s.store.emailTaken(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
	}
	if username != "" {
		taken, err := s.store.usernameTaken(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}
	}
	return nil
}

// Login はメールアドレスとパスワードを照合し、トークンを発行する。
func (s *Service) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: emailとpasswordは必須です", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return AuthResult{}, ErrInvalidEmail
	}

	row, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if !row.IsActive {
		return AuthResult{}, ErrInvalidCredentials
	}

	match, err := s.hasher.Compare(in.Password, row.Password)
	if err != nil {
		return AuthResult{}, err
	}
	if !match {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(fromRow(row))
}

// Refresh はリフレッシュトークンを検証し、新しいトークンの組を発行する。
// ユーザーは発行時点ではなく現在の状態で判定する。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, fmt.Errorf("%w: refresh_tokenは必須です", ErrValidation)
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrSecretNotConfigured) {
			return AuthResult{}, err
		}
		return AuthResult{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	row, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, ErrInvalidRefreshToken
		}
		return AuthResult{}, err
	}
	if !row.IsActive {
		return AuthResult{}, ErrInvalidRefreshToken
	}
	return s.issue(fromRow(row))
}

func (s *Service) issue(u User) (AuthResult, error) {
	pair, err := s.tokens.IssuePair(u.Principal())
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, TokenPair: pair}, nil
}

// Get はIDでユーザーを取得する。
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	row, err := s.store.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	return fromRow(row), nil
}

// Current は認証済みの主体に対応するユーザーを取得する。
func (s *Service) Current(ctx context.Context, p auth.Principal) (User, error) {
	return s.Get(ctx, p.ID)
}

// UpdateProfile は本人のプロフィールを更新する。権限フラグとパスワードは変更できない。
func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (User, error) {
	return s.Update(ctx, id, UpdateInput{ProfileInput: in})
}

// Update はユーザーを部分更新する。パスワードの変更を含む場合も1つのトランザクションで書き込む。
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	params := db.UpdateUserParams{
		ID:          current.ID,
		Username:    current.Username,
		Email:       current.Email,
		FirstName:   current.FirstName,
		MiddleName:  current.MiddleName,
		LastName:    current.LastName,
		IsSuperuser: current.IsSuperuser,
		IsActive:    current.IsActive,
		UpdatedAt:   s.now().UTC(),
	}

	var newEmail, newUsername string
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if !emailPattern.MatchString(email) {
			return User{}, ErrInvalidEmail
		}
		if email != current.Email {
			newEmail = email
		}
		params.Email = email
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return User{}, fmt.Errorf("%w: usernameは空にできません", ErrValidation)
		}
		if username != current.Username {
			newUsername = username
		}
		params.Username = username
	}
	if err := s.ensureUnique(ctx, newEmail, newUsername); err != nil {
		return User{}, err
	}

	if in.FirstName != nil {
		if params.FirstName = strings.TrimSpace(*in.FirstName); params.FirstName == "" {
			return User{}, fmt.Errorf("%w: first_nameは空にできません", ErrValidation)
		}
	}
	if in.LastName != nil {
		if params.LastName = strings.TrimSpace(*in.LastName); params.LastName == "" {
			return User{}, fmt.Errorf("%w: last_nameは空にできません", ErrValidation)
		}
	}
	if in.MiddleName != nil {
		params.MiddleName = toNullString(in.MiddleName)
	}
	if in.IsSuperuser != nil {
		params.IsSuperuser = *in.IsSuperuser
	}
	if in.IsActive != nil {
		params.IsActive = *in.IsActive
	}

	var hash string
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return User{}, err
		}
		if hash, err = s.hasher.Hash(*in.Password); err != nil {
			return User{}, err
		}
	}

	var row db.User
	err = s.store.withTx(ctx, func(q *db.Queries) error {
		var err error
		if row, err = q.UpdateUser(ctx, params); err != nil {
			if dup := conflict(err); dup != nil {
				return dup
			}
			return fmt.Errorf("ユーザーの更新に失敗: %w", err)
		}
		if hash == "" {
			return nil
		}
		if err := q.UpdateUserPassword(ctx, id, hash, params.UpdatedAt); err != nil {
			return fmt.Errorf("パスワードの更新に失敗: %w", err)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return fromRow(row), nil
}

// ChangePassword は現在のパスワードを確認したうえでパスワードを変更する。
func (s *Service) ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: current_passwordとnew_passwordは必須です", ErrValidation)
	}

	row, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	match, err := s.hasher.Compare(currentPassword, row.Password)
	if err != nil {
		return err
	}
	if !match {
		return ErrIncorrectPassword
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.q.UpdateUserPassword(ctx, id, hash, s.now().UTC()); err != nil {
		return fmt.Errorf("パスワードの更新に失敗: %w", err)
	}
	return nil
}

// Delete はユーザーを無効化する（論理削除）。
func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.store.q.SetUserActive(ctx, id, false, s.now().UTC())
	if err != nil {
		return fmt.Errorf("ユーザーの無効化に失敗: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("ID %d: %w", id, ErrNotFound)
	}
	return nil
}

// List はユーザーを作成日時の新しい順に返す。
// 一覧と総件数は並行して取得する。
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	page := db.NewPage(params.Skip, params.Limit)
	filter := db.UserFilter{
		Search:      strings.TrimSpace(params.Search),
		IsActive:    params.IsActive,
		IsSuperuser: params.IsSuperuser,
	}

	var (
		rows  []db.User
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.store.q.ListUsers(gctx, filter, page.Limit, page.Skip)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.q.CountUsers(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return ListResult{}, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}

	users := make([]User, 0, len(rows))
	for _, r := range rows {
		users = append(users, fromRow(r))
	}
	return ListResult{Users: users, Total: total, Page: page}, nil
}
