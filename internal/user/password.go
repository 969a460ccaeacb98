package user

import (
	"fmt"

	"github.com/alexedwards/argon2id"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 6

// PasswordHasher はパスワードのハッシュ化と照合を行う。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) (bool, error)
}

// Argon2Hasher はargon2idによるPasswordHasher。
type Argon2Hasher struct {
	params *argon2id.Params
}

// NewArgon2Hasher は新しいArgon2Hasherを生成する。paramsがnilなら推奨値を使う。
func NewArgon2Hasher(params *argon2id.Params) *Argon2Hasher {
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &Argon2Hasher{params: params}
}

// Hash はパスワードをPHC形式のハッシュ文字列に変換する。
func (h *Argon2Hasher) Hash(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, h.params)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	return hash, nil
}

// Compare はパスワードがハッシュと一致するかを返す。
func (h *Argon2Hasher) Compare(password, hash string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("パスワードの照合に失敗: %w", err)
	}
	return match, nil
}

func validatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
