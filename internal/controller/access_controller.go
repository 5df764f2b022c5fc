package controller

import (
	"edu_network_backend/internal/middleware"
	"edu_network_backend/internal/service"
	"edu_network_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AccessController struct {
	AccessService *service.AccessService
}

func NewAccessController(accessService *service.AccessService) *AccessController {
	return &AccessController{AccessService: accessService}
}

// CheckAccess godoc
// @Summary 检查当前用户对节点内容层级的访问权限
// @Tags access
// @Produce json
// @Security ApiKeyAuth
// @Param nodeId path string true "节点ID"
// @Param tier query string false "内容层级" Enums(free, premium, enterprise) default(free)
// @Success 200 {object} util.Response{data=service.AccessDecision}
// @Failure 400 {object} util.Response "非法层级"
// @Router /api/nodes/{nodeId}/access [get]
func (c *AccessController) CheckAccess(ctx *gin.Context) {
	decision, err := c.AccessService.CheckAccess(ctx.Request.Context(), middleware.ActorID(ctx), ctx.Param("nodeId"), ctx.Query("tier"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, decision)
}

// CreateSubscription godoc
// @Summary 创建订阅 (Admin)
// @Tags access
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.CreateSubscriptionRequest true "订阅"
// @Success 201 {object} util.Response{data=model.Subscription}
// @Router /api/admin/subscriptions [post]
func (c *AccessController) CreateSubscription(ctx *gin.Context) {
	var req service.CreateSubscriptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.AccessService.CreateSubscription(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}
