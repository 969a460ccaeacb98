package user

import "errors"

var (
	// ErrNotFound はユーザーが存在しないことを表す。
	ErrNotFound = errors.New("ユーザーが見つかりません")
	// ErrEmailTaken はメールアドレスが登録済みであることを表す。
	ErrEmailTaken = errors.New("このメールアドレスは既に登録されています")
	// ErrUsernameTaken はユーザー名が使用済みであることを表す。
	ErrUsernameTaken = errors.New("このユーザー名は既に使用されています")
	// ErrInvalidEmail はメールアドレスの形式が不正であることを表す。
	ErrInvalidEmail = errors.New("メールアドレスの形式が不正です")
	// ErrInvalidCredentials はログインに失敗したことを表す。
	// 未登録・無効化済み・パスワード不一致を区別しない。
	ErrInvalidCredentials = errors.New("メールアドレスまたはパスワードが正しくありません")
	// ErrIncorrectPassword は現在のパスワードが一致しないことを表す。
	ErrIncorrectPassword = errors.New("現在のパスワードが正しくありません")
	// ErrWeakPassword はパスワードが短すぎることを表す。
	ErrWeakPassword = errors.New("パスワードは6文字以上である必要があります")
	// ErrInvalidRefreshToken はリフレッシュトークンが使えないことを表す。
	ErrInvalidRefreshToken = errors.New("リフレッシュトークンが無効です")
	// ErrValidation は必須項目の欠落など入力値の不備を表す。
	ErrValidation = errors.New("入力値が不正です")
)
