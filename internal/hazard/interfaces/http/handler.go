package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/hazardwatch/internal/hazard/application"
	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
)

// HazardHandler HTTP 处理器
// 负责处理灾害生命周期、投票与解决流程的 HTTP 请求
type HazardHandler struct {
	svc *application.HazardService
}

func NewHazardHandler(svc *application.HazardService) *HazardHandler {
	return &HazardHandler{svc: svc}
}

// 注册路由
func (h *HazardHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/v1/hazards")
	{
		api.POST("", h.CreateHazard)
		api.GET("/:hazard_id", h.GetHazard)
		api.GET("/:hazard_id/expiration", h.GetExpirationStatus)
		api.GET("/:hazard_id/audit", h.GetAuditTrail)

		api.POST("/:hazard_id/votes", h.CastVote)
		api.DELETE("/:hazard_id/votes", h.RemoveVote)
		api.GET("/:hazard_id/votes/status", h.GetVoteStatus)

		api.POST("/:hazard_id/resolution", h.SubmitResolutionReport)
		api.POST("/:hazard_id/resolution/confirm", h.ConfirmResolution)
		api.POST("/:hazard_id/resolution/dispute", h.DisputeResolution)

		api.POST("/:hazard_id/extend", h.ExtendExpiration)
		api.POST("/:hazard_id/force-expire", h.ForceExpire)
		api.POST("/:hazard_id/restore", h.Restore)
	}
}

// statusOf 把领域哨兵错误映射到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrHazardNotFound),
		errors.Is(err, domain.ErrVoteNotFound),
		errors.Is(err, domain.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrOwnVote),
		errors.Is(err, domain.ErrReportExists),
		errors.Is(err, domain.ErrNoOpenReport),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrNotResolved),
		errors.Is(err, domain.ErrPolicyMismatch),
		errors.Is(err, domain.ErrConcurrency):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *HazardHandler) fail(c *gin.Context, msg string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logging.Error(c.Request.Context(), msg, "error", err)
	}
	response.ErrorWithStatus(c, status, err.Error(), "")
}

// CreateHazardRequest 建灾害请求
type CreateHazardRequest struct {
	OwnerID         string `json:"owner_id" binding:"required"`
	Title           string `json:"title" binding:"required"`
	Category        string `json:"category" binding:"required"`
	Severity        int    `json:"severity"`
	LifecyclePolicy string `json:"lifecycle_policy"`
	AutoExpireHours int    `json:"auto_expire_hours"`
	SeasonalMonths  []int  `json:"seasonal_months"`
	Threshold       int    `json:"confirmation_threshold"`
}

func (h *HazardHandler) CreateHazard(c *gin.Context) {
	var req CreateHazardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.CreateHazard(c.Request.Context(), application.CreateHazardCommand{
		OwnerID:         req.OwnerID,
		Title:           req.Title,
		Category:        req.Category,
		Severity:        req.Severity,
		LifecyclePolicy: domain.LifecyclePolicy(req.LifecyclePolicy),
		AutoExpireHours: req.AutoExpireHours,
		SeasonalMonths:  req.SeasonalMonths,
		Threshold:       req.Threshold,
	})
	if err != nil {
		h.fail(c, "Failed to create hazard", err)
		return
	}
	response.Success(c, dto)
}

func (h *HazardHandler) GetHazard(c *gin.Context) {
	dto, err := h.svc.GetHazard(c.Request.Context(), c.Param("hazard_id"))
	if err != nil {
		h.fail(c, "Failed to get hazard", err)
		return
	}
	response.Success(c, dto)
}

func (h *HazardHandler) GetExpirationStatus(c *gin.Context) {
	dto, err := h.svc.GetExpirationStatus(c.Request.Context(), c.Param("hazard_id"))
	if err != nil {
		h.fail(c, "Failed to get expiration status", err)
		return
	}
	response.Success(c, dto)
}

func (h *HazardHandler) GetAuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	dto, err := h.svc.GetAuditTrail(c.Request.Context(), c.Param("hazard_id"), limit, offset)
	if err != nil {
		h.fail(c, "Failed to get audit trail", err)
		return
	}
	response.Success(c, dto)
}

// CastVoteRequest 投票请求
type CastVoteRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	VoteType string `json:"vote_type" binding:"required"`
}

func (h *HazardHandler) CastVote(c *gin.Context) {
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.svc.CastVote(c.Request.Context(), application.CastVoteCommand{
		HazardID: c.Param("hazard_id"),
		UserID:   req.UserID,
		VoteType: domain.VoteType(req.VoteType),
	})
	if err != nil {
		h.fail(c, "Failed to cast vote", err)
		return
	}
	response.Success(c, gin.H{"voted": true})
}

// RemoveVoteRequest 撤票请求
type RemoveVoteRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *HazardHandler) RemoveVote(c *gin.Context) {
	var req RemoveVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.svc.RemoveVote(c.Request.Context(), c.Param("hazard_id"), req.UserID); err != nil {
		h.fail(c, "Failed to remove vote", err)
		return
	}
	response.Success(c, gin.H{"removed": true})
}

func (h *HazardHandler) GetVoteStatus(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "user_id is required", "")
		return
	}

	status, err := h.svc.GetVoteStatus(c.Request.Context(), c.Param("hazard_id"), userID)
	if err != nil {
		h.fail(c, "Failed to get vote status", err)
		return
	}
	response.Success(c, status)
}

// SubmitResolutionRequest 解决上报请求
type SubmitResolutionRequest struct {
	ReporterID  string `json:"reporter_id" binding:"required"`
	Note        string `json:"note" binding:"required"`
	EvidenceRef string `json:"evidence_ref"`
}

func (h *HazardHandler) SubmitResolutionReport(c *gin.Context) {
	var req SubmitResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.svc.SubmitResolutionReport(c.Request.Context(), application.SubmitReportCommand{
		HazardID:    c.Param("hazard_id"),
		ReporterID:  req.ReporterID,
		Note:        req.Note,
		EvidenceRef: req.EvidenceRef,
	})
	if err != nil {
		h.fail(c, "Failed to submit resolution report", err)
		return
	}
	response.Success(c, gin.H{"reported": true})
}

// ConfirmationRequest 解决确认/质疑请求
type ConfirmationRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Note   string `json:"note"`
}

func (h *HazardHandler) ConfirmResolution(c *gin.Context) {
	var req ConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.svc.ConfirmResolution(c.Request.Context(), application.ConfirmationCommand{
		HazardID: c.Param("hazard_id"),
		UserID:   req.UserID,
		Note:     req.Note,
	})
	if err != nil {
		h.fail(c, "Failed to confirm resolution", err)
		return
	}
	response.Success(c, gin.H{"confirmed": true})
}

func (h *HazardHandler) DisputeResolution(c *gin.Context) {
	var req ConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.svc.DisputeResolution(c.Request.Context(), application.ConfirmationCommand{
		HazardID: c.Param("hazard_id"),
		UserID:   req.UserID,
		Note:     req.Note,
	})
	if err != nil {
		h.fail(c, "Failed to dispute resolution", err)
		return
	}
	response.Success(c, gin.H{"disputed": true})
}

// ExtendExpirationRequest 延期请求
type ExtendExpirationRequest struct {
	AdditionalHours int    `json:"additional_hours" binding:"required"`
	ActorID         string `json:"actor_id" binding:"required"`
}

func (h *HazardHandler) ExtendExpiration(c *gin.Context) {
	var req ExtendExpirationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.svc.ExtendExpiration(c.Request.Context(), c.Param("hazard_id"), req.AdditionalHours, req.ActorID); err != nil {
		h.fail(c, "Failed to extend expiration", err)
		return
	}
	response.Success(c, gin.H{"extended": true})
}

// AdminActionRequest 管理员动作请求（强制关闭 / 恢复）
type AdminActionRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

func (h *HazardHandler) ForceExpire(c *gin.Context) {
	var req AdminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.svc.ForceExpire(c.Request.Context(), c.Param("hazard_id"), req.ActorID, req.Reason); err != nil {
		h.fail(c, "Failed to force expire hazard", err)
		return
	}
	response.Success(c, gin.H{"expired": true})
}

func (h *HazardHandler) Restore(c *gin.Context) {
	var req AdminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.svc.Restore(c.Request.Context(), c.Param("hazard_id"), req.ActorID, req.Reason); err != nil {
		h.fail(c, "Failed to restore hazard", err)
		return
	}
	response.Success(c, gin.H{"restored": true})
}
