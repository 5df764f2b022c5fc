package controller

import (
	"edu_network_backend/internal/middleware"
	"edu_network_backend/internal/service"
	"edu_network_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DistributionController struct {
	DistributionService *service.DistributionService
}

func NewDistributionController(distributionService *service.DistributionService) *DistributionController {
	return &DistributionController{DistributionService: distributionService}
}

// Distribute godoc
// @Summary 分发内容到节点 (Editor/Admin)
// @Description 节点失败不会使请求失败，结果见任务的 failures 列表
// @Tags distribution
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param request body service.DistributeOptions false "目标节点、模式、优先级、定时"
// @Success 201 {object} util.Response{data=model.DistributionJob}
// @Failure 400 {object} util.Response "内容没有当前稳定版本"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/admin/contents/{id}/distribute [post]
func (c *DistributionController) Distribute(ctx *gin.Context) {
	var opts service.DistributeOptions
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&opts); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	opts.InitiatedBy = middleware.ActorID(ctx)

	job, err := c.DistributionService.Distribute(ctx.Request.Context(), ctx.Param("id"), opts)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, job)
}

// GetJob godoc
// @Summary 分发任务详情
// @Tags distribution
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "任务ID"
// @Success 200 {object} util.Response{data=model.DistributionJob}
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/admin/distribution-jobs/{id} [get]
func (c *DistributionController) GetJob(ctx *gin.Context) {
	job, err := c.DistributionService.GetJob(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, job)
}

// ListJobs godoc
// @Summary 分发任务列表
// @Tags distribution
// @Produce json
// @Security ApiKeyAuth
// @Param contentId query string false "内容ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/distribution-jobs [get]
func (c *DistributionController) ListJobs(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"))
	jobs, total, err := c.DistributionService.ListJobs(ctx.Request.Context(), ctx.Query("contentId"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: jobs, Total: total, Page: page, Limit: limit})
}

// RetryFailed godoc
// @Summary 重新分发失败节点
// @Description 对已结束任务的失败节点发起新的 selective 分发
// @Tags distribution
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "任务ID"
// @Success 201 {object} util.Response{data=model.DistributionJob}
// @Failure 409 {object} util.Response "任务尚未结束"
// @Router /api/admin/distribution-jobs/{id}/retry [post]
func (c *DistributionController) RetryFailed(ctx *gin.Context) {
	job, err := c.DistributionService.RetryFailed(ctx.Request.Context(), ctx.Param("id"), middleware.ActorID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, job)
}
