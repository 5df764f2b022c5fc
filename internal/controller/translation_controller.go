package controller

import (
	"edu_network_backend/internal/middleware"
	"edu_network_backend/internal/service"
	"edu_network_backend/internal/util"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type TranslationController struct {
	TranslationService *service.TranslationService
	ReviewAlertAfter   time.Duration
}

func NewTranslationController(translationService *service.TranslationService, reviewAlertAfter time.Duration) *TranslationController {
	return &TranslationController{
		TranslationService: translationService,
		ReviewAlertAfter:   reviewAlertAfter,
	}
}

// CreateRequest godoc
// @Summary 创建翻译请求 (NodeOperator/Admin)
// @Description 请求创建时即被认领，状态为 in_progress
// @Tags translation
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.CreateTranslationRequest true "翻译请求"
// @Success 201 {object} util.Response{data=model.TranslationRequest}
// @Router /api/node/translations [post]
func (c *TranslationController) CreateRequest(ctx *gin.Context) {
	var req service.CreateTranslationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.TranslatorID == "" {
		req.TranslatorID = middleware.ActorID(ctx)
	}

	tr, err := c.TranslationService.CreateRequest(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, tr)
}

type SubmitTranslationRequest struct {
	TranslatedText string                 `json:"translatedText" binding:"required"`
	QualityMeta    map[string]interface{} `json:"qualityMeta"`
}

// SubmitTranslation godoc
// @Summary 提交译文 (Translator)
// @Tags translation
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "翻译请求ID"
// @Param request body SubmitTranslationRequest true "译文"
// @Success 200 {object} util.Response{data=model.TranslationRequest}
// @Failure 409 {object} util.Response "状态不允许提交"
// @Router /api/translations/{id}/submit [post]
func (c *TranslationController) SubmitTranslation(ctx *gin.Context) {
	var req SubmitTranslationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	tr, err := c.TranslationService.SubmitTranslation(ctx.Request.Context(), ctx.Param("id"), req.TranslatedText, req.QualityMeta)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tr)
}

// ApproveTranslation godoc
// @Summary 审核通过译文 (Reviewer)
// @Tags translation
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "翻译请求ID"
// @Success 200 {object} util.Response{data=model.TranslationRequest}
// @Failure 409 {object} util.Response "状态不允许审核"
// @Router /api/translations/{id}/approve [post]
func (c *TranslationController) ApproveTranslation(ctx *gin.Context) {
	tr, err := c.TranslationService.ApproveTranslation(ctx.Request.Context(), ctx.Param("id"), middleware.ActorID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tr)
}

// @Summary 翻译请求详情
// @Tags translation
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "翻译请求ID"
// @Success 200 {object} util.Response{data=model.TranslationRequest}
// @Router /api/translations/{id} [get]
func (c *TranslationController) GetRequest(ctx *gin.Context) {
	tr, err := c.TranslationService.GetRequest(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tr)
}

// StaleReviews godoc
// @Summary 长时间未审核的翻译请求
// @Tags translation
// @Produce json
// @Security ApiKeyAuth
// @Param hours query int false "阈值（小时），默认使用配置"
// @Success 200 {object} util.Response{data=[]model.TranslationRequest}
// @Router /api/admin/translations/stale [get]
func (c *TranslationController) StaleReviews(ctx *gin.Context) {
	threshold := c.ReviewAlertAfter
	if h := ctx.Query("hours"); h != "" {
		hours, err := strconv.Atoi(h)
		if err != nil || hours <= 0 {
			util.BadRequest(ctx, "invalid hours")
			return
		}
		threshold = time.Duration(hours) * time.Hour
	}

	reqs, err := c.TranslationService.ListStaleReviews(ctx.Request.Context(), threshold)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reqs)
}
