package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/projecthub/internal/user"
)

// refreshRequest はトークン更新のリクエストボディ。
type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// changePasswordRequest はパスワード変更のリクエストボディ。
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// userListQuery はユーザー一覧のクエリパラメータ。
type userListQuery struct {
	Skip        int    `form:"skip" binding:"min=0"`
	Limit       int    `form:"limit" binding:"min=0"`
	Search      string `form:"search"`
	IsActive    *bool  `form:"is_active"`
	IsSuperuser *bool  `form:"is_superuser"`
}

// handleRegister はユーザー登録のハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.RegisterInput
		if !bindJSON(c, &req) {
			return
		}
		res, err := s.users.Register(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, "ユーザーを登録しました", res)
	}
}

// handleLogin はログインのハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.LoginInput
		if !bindJSON(c, &req) {
			return
		}
		res, err := s.users.Login(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "ログインしました", res)
	}
}

// handleRefreshToken はトークン更新のハンドラを返す。
func (s *Server) handleRefreshToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if !bindJSON(c, &req) {
			return
		}
		res, err := s.users.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "トークンを更新しました", res)
	}
}

// handleCurrentUser はログイン中のユーザー情報を返すハンドラを返す。
func (s *Server) handleCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		u, err := s.users.Current(c.Request.Context(), p)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "ユーザー情報を取得しました", u)
	}
}

// handleUpdateProfile は本人のプロフィール更新のハンドラを返す。
func (s *Server) handleUpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var req user.ProfileInput
		if !bindJSON(c, &req) {
			return
		}
		u, err := s.users.UpdateProfile(c.Request.Context(), p.ID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "プロフィールを更新しました", u)
	}
}

// handleChangePassword はパスワード変更のハンドラを返す。
func (s *Server) handleChangePassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var req changePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := s.users.ChangePassword(c.Request.Context(), p.ID, req.CurrentPassword, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "パスワードを変更しました", nil)
	}
}

// handleListUsers はユーザー一覧のハンドラを返す。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q userListQuery
		if !bindQuery(c, &q) {
			return
		}
		res, err := s.users.List(c.Request.Context(), user.ListParams{
			Skip:        q.Skip,
			Limit:       q.Limit,
			Search:      q.Search,
			IsActive:    q.IsActive,
			IsSuperuser: q.IsSuperuser,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		respondList(c, "ユーザー一覧を取得しました", res.Users, res.Page, res.Total)
	}
}

// handleGetUser はユーザー取得のハンドラを返す。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		u, err := s.users.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "ユーザーを取得しました", u)
	}
}

// handleUpdateUser は管理者によるユーザー更新のハンドラを返す。
func (s *Server) handleUpdateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req user.UpdateInput
		if !bindJSON(c, &req) {
			return
		}
		u, err := s.users.Update(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "ユーザーを更新しました", u)
	}
}

// handleDeleteUser はユーザー無効化のハンドラを返す。
func (s *Server) handleDeleteUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := s.users.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "ユーザーを削除しました", nil)
	}
}

// handleCreateSuperuser は管理者ユーザー作成のハンドラを返す。
func (s *Server) handleCreateSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.RegisterInput
		if !bindJSON(c, &req) {
			return
		}
		u, err := s.users.CreateSuperuser(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, "管理者ユーザーを作成しました", u)
	}
}
