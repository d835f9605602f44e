package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/hazardwatch/internal/trust/application"
	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
)

// TrustHandler HTTP 处理器
// 负责处理与信誉分相关的 HTTP 请求
type TrustHandler struct {
	svc *application.TrustService
}

func NewTrustHandler(svc *application.TrustService) *TrustHandler {
	return &TrustHandler{svc: svc}
}

// 注册路由
func (h *TrustHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/v1/trust")
	{
		api.GET("/users/:user_id/score", h.GetScore)         // 当前分数与等级
		api.GET("/users/:user_id/history", h.GetHistory)     // 账本分页
		api.GET("/users/:user_id/breakdown", h.GetBreakdown) // 按动作类型汇总
		api.POST("/users/:user_id/adjust", h.AdjustScore)    // 管理员调分
		api.POST("/config/reload", h.ReloadConfig)           // 刷新分值表快照
	}
}

func (h *TrustHandler) GetScore(c *gin.Context) {
	dto, err := h.svc.GetScore(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get trust score", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, dto)
}

func (h *TrustHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, total, err := h.svc.GetHistory(c.Request.Context(), c.Param("user_id"), limit, offset)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get trust history", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"events": events, "total": total})
}

func (h *TrustHandler) GetBreakdown(c *gin.Context) {
	rows, err := h.svc.GetBreakdown(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get trust breakdown", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, rows)
}

// AdjustScoreRequest 管理员调分请求
type AdjustScoreRequest struct {
	Delta   int64  `json:"delta" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
	AdminID string `json:"admin_id" binding:"required"`
}

func (h *TrustHandler) AdjustScore(c *gin.Context) {
	var req AdjustScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	event, err := h.svc.AdjustScore(c.Request.Context(), application.AdjustScoreCommand{
		UserID:  c.Param("user_id"),
		Delta:   req.Delta,
		Reason:  req.Reason,
		AdminID: req.AdminID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			response.ErrorWithStatus(c, http.StatusForbidden, err.Error(), "")
			return
		}
		logging.Error(c.Request.Context(), "Failed to adjust trust score", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"event_id": event.EventID, "new_score": event.NewScore})
}

func (h *TrustHandler) ReloadConfig(c *gin.Context) {
	if err := h.svc.ReloadConfig(c.Request.Context()); err != nil {
		logging.Error(c.Request.Context(), "Failed to reload trust config", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"reloaded": true})
}
