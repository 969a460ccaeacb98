package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/projecthub/internal/project"
	"github.com/nao1215/projecthub/pkg/middleware"
)

// projectListQuery はプロジェクト一覧のクエリパラメータ。
type projectListQuery struct {
	Skip    int    `form:"skip" binding:"min=0"`
	Limit   int    `form:"limit" binding:"min=0"`
	Search  string `form:"search"`
	Status  string `form:"status" binding:"omitempty,project_status"`
	OwnerID int64  `form:"owner_id" binding:"min=0"`
}

func (q projectListQuery) params() project.ListParams {
	return project.ListParams{
		Skip:    q.Skip,
		Limit:   q.Limit,
		Search:  q.Search,
		Status:  project.Status(q.Status),
		OwnerID: q.OwnerID,
	}
}

// handleListProjects はプロジェクト一覧のハンドラを返す。
func (s *Server) handleListProjects() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q projectListQuery
		if !bindQuery(c, &q) {
			return
		}
		res, err := s.projects.List(c.Request.Context(), q.params())
		if err != nil {
			respondError(c, err)
			return
		}
		respondList(c, "プロジェクト一覧を取得しました", res.Projects, res.Page, res.Total)
	}
}

// handleListMyProjects は本人が所有するプロジェクト一覧のハンドラを返す。
func (s *Server) handleListMyProjects() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var q projectListQuery
		if !bindQuery(c, &q) {
			return
		}
		res, err := s.projects.ListMine(c.Request.Context(), p.ID, q.params())
		if err != nil {
			respondError(c, err)
			return
		}
		respondList(c, "自分のプロジェクト一覧を取得しました", res.Projects, res.Page, res.Total)
	}
}

// handleProjectStats は全体の集計を返すハンドラを返す。
// ログイン中であれば本人の集計を"mine"として加える。
func (s *Server) handleProjectStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ownerID int64
		if p, ok := middleware.CurrentPrincipal(c); ok {
			ownerID = p.ID
		}
		ov, err := s.projects.Overview(c.Request.Context(), ownerID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "プロジェクトの集計を取得しました", ov)
	}
}

// handleMyProjectStats は本人の集計を返すハンドラを返す。
func (s *Server) handleMyProjectStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		stats, err := s.projects.StatsByOwner(c.Request.Context(), p.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "自分のプロジェクトの集計を取得しました", stats)
	}
}

// handleGetProject はプロジェクト取得のハンドラを返す。
func (s *Server) handleGetProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		p, err := s.projects.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "プロジェクトを取得しました", p)
	}
}

// handleCreateProject はプロジェクト作成のハンドラを返す。
// オーナーが未指定の場合はログイン中のユーザーをオーナーにする。
func (s *Server) handleCreateProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := principal(c)
		if !ok {
			return
		}
		var req project.CreateInput
		if !bindJSON(c, &req) {
			return
		}
		p, err := s.projects.Create(c.Request.Context(), caller.ID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, "プロジェクトを作成しました", p)
	}
}

// handleUpdateProject はプロジェクト更新のハンドラを返す。
func (s *Server) handleUpdateProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req project.UpdateInput
		if !bindJSON(c, &req) {
			return
		}
		p, err := s.projects.Update(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "プロジェクトを更新しました", p)
	}
}

// handleDeleteProject はプロジェクト削除のハンドラを返す。
func (s *Server) handleDeleteProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := s.projects.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, "プロジェクトを削除しました", nil)
	}
}
