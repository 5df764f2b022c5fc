package controller

import (
	"edu_network_backend/internal/middleware"
	"edu_network_backend/internal/service"
	"edu_network_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NodeController struct {
	NodeService         *service.NodeService
	LocalizationService *service.LocalizationService
}

func NewNodeController(nodeService *service.NodeService, localizationService *service.LocalizationService) *NodeController {
	return &NodeController{
		NodeService:         nodeService,
		LocalizationService: localizationService,
	}
}

// RegisterNode godoc
// @Summary 注册区域节点 (Admin)
// @Tags node
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.RegisterNodeRequest true "节点信息"
// @Success 201 {object} util.Response{data=model.Node}
// @Failure 400 {object} util.Response "slug 已被占用"
// @Router /api/admin/nodes [post]
func (c *NodeController) RegisterNode(ctx *gin.Context) {
	var req service.RegisterNodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	node, err := c.NodeService.Register(ctx.Request.Context(), middleware.ActorID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, node)
}

// ListNodes godoc
// @Summary 节点列表
// @Tags node
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "状态" Enums(active, pending, suspended)
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/nodes [get]
func (c *NodeController) ListNodes(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"))
	nodes, total, err := c.NodeService.List(ctx.Request.Context(), ctx.Query("status"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: nodes, Total: total, Page: page, Limit: limit})
}

// @Summary 节点详情
// @Tags node
// @Produce json
// @Security ApiKeyAuth
// @Param nodeId path string true "节点ID"
// @Success 200 {object} util.Response{data=model.Node}
// @Router /api/nodes/{nodeId} [get]
func (c *NodeController) GetNode(ctx *gin.Context) {
	node, err := c.NodeService.Get(ctx.Request.Context(), ctx.Param("nodeId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, node)
}

type SetNodeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active pending suspended"`
}

// SetNodeStatus godoc
// @Summary 修改节点状态 (Admin)
// @Description 仅允许 pending→active、active⇄suspended
// @Tags node
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param nodeId path string true "节点ID"
// @Param request body SetNodeStatusRequest true "目标状态"
// @Success 200 {object} util.Response{data=model.Node}
// @Failure 409 {object} util.Response "非法状态转换"
// @Router /api/admin/nodes/{nodeId}/status [patch]
func (c *NodeController) SetNodeStatus(ctx *gin.Context) {
	var req SetNodeStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	node, err := c.NodeService.SetStatus(ctx.Request.Context(), ctx.Param("nodeId"), req.Status)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, node)
}

// Localize godoc
// @Summary 本地化节点内容 (NodeOperator/Admin)
// @Description 追加文化适配记录，翻译状态回到 in_progress
// @Tags localization
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param nodeId path string true "节点ID"
// @Param request body service.LocalizeRequest true "本地化内容"
// @Success 200 {object} util.Response{data=model.LocalContent}
// @Failure 400 {object} util.Response "Bad Request"
// @Failure 404 {object} util.Response "内容或节点不存在"
// @Router /api/node/nodes/{nodeId}/localize [post]
func (c *NodeController) Localize(ctx *gin.Context) {
	var req service.LocalizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	req.NodeID = ctx.Param("nodeId")
	req.ActorID = middleware.ActorID(ctx)

	lc, err := c.LocalizationService.Localize(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lc)
}

// ListLocalContent godoc
// @Summary 节点的本地内容
// @Tags localization
// @Produce json
// @Security ApiKeyAuth
// @Param nodeId path string true "节点ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/nodes/{nodeId}/contents [get]
func (c *NodeController) ListLocalContent(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"))
	items, total, err := c.LocalizationService.ListLocalContent(ctx.Request.Context(), ctx.Param("nodeId"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// @Summary 本地内容详情
// @Tags localization
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "本地内容ID"
// @Success 200 {object} util.Response{data=model.LocalContent}
// @Router /api/local-contents/{id} [get]
func (c *NodeController) GetLocalContent(ctx *gin.Context) {
	lc, err := c.LocalizationService.GetLocalContent(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lc)
}
