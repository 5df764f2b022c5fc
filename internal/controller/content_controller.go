package controller

import (
	"edu_network_backend/internal/middleware"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/service"
	"edu_network_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
	VersionService *service.VersionService
}

func NewContentController(contentService *service.ContentService, versionService *service.VersionService) *ContentController {
	return &ContentController{
		ContentService: contentService,
		VersionService: versionService,
	}
}

// CreateContent godoc
// @Summary 创建全局内容 (Editor/Admin)
// @Description 创建内容并生成初始稳定版本 1.0.0
// @Tags content
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.CreateContentRequest true "内容"
// @Success 201 {object} util.Response{data=model.GlobalContent}
// @Failure 400 {object} util.Response "Bad Request"
// @Failure 401 {object} util.Response "Unauthorized"
// @Failure 403 {object} util.Response "Forbidden"
// @Router /api/admin/contents [post]
func (c *ContentController) CreateContent(ctx *gin.Context) {
	var req service.CreateContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	content, err := c.VersionService.CreateGlobalContent(ctx.Request.Context(), middleware.ActorID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, content)
}

// ListContents godoc
// @Summary 查询全局内容
// @Description 按类型、分类、难度、年龄段、访问层级、发布状态与关键字过滤
// @Tags content
// @Produce json
// @Security ApiKeyAuth
// @Param contentType query string false "内容类型" Enums(course, lesson, assessment, resource, activity)
// @Param category query string false "分类"
// @Param difficultyLevel query string false "难度"
// @Param ageGroup query string false "年龄段"
// @Param accessTier query string false "访问层级" Enums(free, premium, enterprise)
// @Param published query bool false "发布状态"
// @Param search query string false "标题/描述关键字"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/contents [get]
func (c *ContentController) ListContents(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"))
	filter := repository.ContentFilter{
		ContentType:     ctx.Query("contentType"),
		Category:        ctx.Query("category"),
		DifficultyLevel: ctx.Query("difficultyLevel"),
		AgeGroup:        ctx.Query("ageGroup"),
		AccessTier:      ctx.Query("accessTier"),
		Search:          ctx.Query("search"),
		Page:            page,
		Limit:           limit,
	}
	if v := ctx.Query("published"); v != "" {
		published, err := strconv.ParseBool(v)
		if err != nil {
			util.BadRequest(ctx, "invalid published flag")
			return
		}
		filter.Published = &published
	}

	contents, total, err := c.ContentService.List(ctx.Request.Context(), filter)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: contents, Total: total, Page: page, Limit: limit})
}

// GetContent godoc
// @Summary 内容详情
// @Tags content
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response{data=model.GlobalContent}
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/contents/{id} [get]
func (c *ContentController) GetContent(ctx *gin.Context) {
	content, err := c.ContentService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

type SetPublishedRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// SetPublished godoc
// @Summary 发布/取消发布内容 (Editor/Admin)
// @Tags content
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param request body SetPublishedRequest true "发布状态"
// @Success 200 {object} util.Response{data=model.GlobalContent}
// @Router /api/admin/contents/{id}/publish [patch]
func (c *ContentController) SetPublished(ctx *gin.Context) {
	var req SetPublishedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	content, err := c.ContentService.SetPublished(ctx.Request.Context(), ctx.Param("id"), *req.Published, middleware.ActorID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// CreateVersion godoc
// @Summary 创建内容版本 (Editor/Admin)
// @Description patch 版本自动稳定并成为当前版本；major/minor 需要提升或 force
// @Tags version
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param request body service.CreateVersionRequest true "版本"
// @Success 201 {object} util.Response{data=model.ContentVersion}
// @Failure 400 {object} util.Response "Bad Request"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/admin/contents/{id}/versions [post]
func (c *ContentController) CreateVersion(ctx *gin.Context) {
	var req service.CreateVersionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	version, err := c.VersionService.CreateVersion(ctx.Request.Context(), ctx.Param("id"), middleware.ActorID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, version)
}

// PromoteVersion godoc
// @Summary 提升版本为当前版本 (Editor/Admin)
// @Tags version
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param versionId path string true "版本ID"
// @Success 200 {object} util.Response{data=model.ContentVersion}
// @Failure 400 {object} util.Response "版本早于当前版本"
// @Router /api/admin/contents/{id}/versions/{versionId}/promote [post]
func (c *ContentController) PromoteVersion(ctx *gin.Context) {
	version, err := c.VersionService.PromoteVersion(ctx.Request.Context(), ctx.Param("id"), ctx.Param("versionId"), middleware.ActorID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, version)
}

// ListVersions godoc
// @Summary 版本历史
// @Tags version
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response{data=[]model.ContentVersion}
// @Router /api/contents/{id}/versions [get]
func (c *ContentController) ListVersions(ctx *gin.Context) {
	versions, err := c.VersionService.ListVersions(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, versions)
}

// @Summary 版本详情
// @Tags version
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param versionId path string true "版本ID"
// @Success 200 {object} util.Response{data=model.ContentVersion}
// @Router /api/contents/{id}/versions/{versionId} [get]
func (c *ContentController) GetVersion(ctx *gin.Context) {
	version, err := c.VersionService.GetVersion(ctx.Request.Context(), ctx.Param("id"), ctx.Param("versionId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, version)
}
