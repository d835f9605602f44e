// 包 domain 灾害上报服务的领域模型
package domain

import (
	"context"
	"time"

	"github.com/wyfcoding/pkg/fsm"
	"gorm.io/gorm"
)

// LifecyclePolicy 生命周期策略
type LifecyclePolicy string

const (
	// PolicyAutoExpire 到期自动过期（如倒树、积水）
	PolicyAutoExpire LifecyclePolicy = "auto_expire"
	// PolicyUserResolvable 由社区上报并确认解决（如路面损坏）
	PolicyUserResolvable LifecyclePolicy = "user_resolvable"
	// PolicyPermanent 永久有效（如悬崖），只能管理员强制关闭
	PolicyPermanent LifecyclePolicy = "permanent"
	// PolicySeasonal 季节性（如落石期、融雪期），按月份集合激活
	PolicySeasonal LifecyclePolicy = "seasonal"
)

func (p LifecyclePolicy) Valid() bool {
	switch p {
	case PolicyAutoExpire, PolicyUserResolvable, PolicyPermanent, PolicySeasonal:
		return true
	}
	return false
}

// Status 灾害状态。除了 resolved_at 终态闩锁，其余全部惰性推导，不落库。
type Status string

const (
	StatusActive            Status = "active"
	StatusExpiringSoon      Status = "expiring_soon"
	StatusExpired           Status = "expired"
	StatusResolved          Status = "resolved"
	StatusDormant           Status = "dormant"
	StatusPendingResolution Status = "pending_resolution"
)

// ExpiringSoonWindow auto_expire 策略进入 expiring_soon 的提前量
const ExpiringSoonWindow = 24 * time.Hour

// DefaultConfirmationThreshold 类目未配置时的确认阈值
const DefaultConfirmationThreshold = 3

// Hazard 灾害聚合根
// 计票字段（votes_up/votes_down）只能在持有行锁的事务内改动；
// vote_score 永远是派生值，不单独存储。
type Hazard struct {
	gorm.Model
	HazardID        string          `gorm:"column:hazard_id;type:varchar(32);uniqueIndex;not null" json:"hazard_id"`
	OwnerID         string          `gorm:"column:owner_id;type:varchar(32);index;not null" json:"owner_id"`
	Title           string          `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Category        string          `gorm:"column:category;type:varchar(60);index;not null" json:"category"`
	Severity        int             `gorm:"column:severity;default:1;not null" json:"severity"`
	LifecyclePolicy LifecyclePolicy `gorm:"column:lifecycle_policy;type:varchar(20);index;not null" json:"lifecycle_policy"`

	// 两者有且仅有一个按策略填充：auto_expire → ExpiresAt，seasonal → SeasonalMonths
	ExpiresAt      *time.Time `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	ExtendedCount  int        `gorm:"column:extended_count;default:0;not null" json:"extended_count"`
	SeasonalMonths MonthSet   `gorm:"column:seasonal_months;default:0;not null" json:"seasonal_months"`

	ConfirmationThreshold int `gorm:"column:confirmation_threshold;default:3;not null" json:"confirmation_threshold"`

	// 终态闩锁：一旦写入只有管理员 Restore 能清除，且必留审计
	ResolvedAt     *time.Time `gorm:"column:resolved_at;index" json:"resolved_at,omitempty"`
	ResolvedBy     string     `gorm:"column:resolved_by;type:varchar(32)" json:"resolved_by,omitempty"`
	ResolutionNote string     `gorm:"column:resolution_note;type:varchar(500)" json:"resolution_note,omitempty"`

	VotesUp   int64 `gorm:"column:votes_up;default:0;not null" json:"votes_up"`
	VotesDown int64 `gorm:"column:votes_down;default:0;not null" json:"votes_down"`

	machine *fsm.Machine[string, string]
}

func (Hazard) TableName() string {
	return "hazards"
}

// VoteScore 派生净票数
func (h *Hazard) VoteScore() int64 {
	return h.VotesUp - h.VotesDown
}

// Resolved 是否处于终态
func (h *Hazard) Resolved() bool {
	return h.ResolvedAt != nil
}

// StatusAt 推导 now 时刻的状态。
// openReport 表示当前是否存在未了结的解决上报（user_resolvable 专用）。
func (h *Hazard) StatusAt(now time.Time, openReport bool) Status {
	if h.ResolvedAt != nil {
		// 系统过期（resolved_by 为空）与人为解决在展示上区分开
		if h.LifecyclePolicy == PolicyAutoExpire && h.ResolvedBy == "" {
			return StatusExpired
		}
		return StatusResolved
	}

	switch h.LifecyclePolicy {
	case PolicyPermanent:
		return StatusActive
	case PolicyAutoExpire:
		if h.ExpiresAt == nil {
			return StatusActive
		}
		if !now.Before(*h.ExpiresAt) {
			return StatusExpired
		}
		if now.After(h.ExpiresAt.Add(-ExpiringSoonWindow)) {
			return StatusExpiringSoon
		}
		return StatusActive
	case PolicySeasonal:
		if h.SeasonalMonths.Contains(int(now.Month())) {
			return StatusActive
		}
		return StatusDormant
	case PolicyUserResolvable:
		if openReport {
			return StatusPendingResolution
		}
		return StatusActive
	}
	return StatusActive
}

// 解决流程状态机事件
const (
	eventReport  = "REPORT"
	eventResolve = "RESOLVE"
	eventForce   = "FORCE"
	eventRestore = "RESTORE"
)

func (h *Hazard) initFSM(openReport bool) {
	state := string(StatusActive)
	if h.Resolved() {
		state = string(StatusResolved)
	} else if openReport {
		state = string(StatusPendingResolution)
	}
	m := fsm.NewMachine[string, string](state)
	m.AddTransition(string(StatusActive), eventReport, string(StatusPendingResolution))
	m.AddTransition(string(StatusPendingResolution), eventResolve, string(StatusResolved))
	m.AddTransition(string(StatusActive), eventForce, string(StatusResolved))
	m.AddTransition(string(StatusPendingResolution), eventForce, string(StatusResolved))
	m.AddTransition(string(StatusResolved), eventRestore, string(StatusActive))
	h.machine = m
}

// BeginResolution 进入待确认态（创建解决上报时调用）
func (h *Hazard) BeginResolution(ctx context.Context) error {
	if h.LifecyclePolicy != PolicyUserResolvable {
		return ErrPolicyMismatch
	}
	h.initFSM(false)
	if err := h.machine.Trigger(ctx, eventReport); err != nil {
		return ErrAlreadyResolved
	}
	return nil
}

// Resolve 闩上终态。已解决时返回 ErrAlreadyResolved，调用方据此保证恰好触发一次。
func (h *Hazard) Resolve(ctx context.Context, resolvedBy, note string, at time.Time) error {
	h.initFSM(true)
	if err := h.machine.Trigger(ctx, eventResolve); err != nil {
		return ErrAlreadyResolved
	}
	h.ResolvedAt = &at
	h.ResolvedBy = resolvedBy
	h.ResolutionNote = note
	return nil
}

// ForceResolve 管理员强制关闭，任何策略可用
func (h *Hazard) ForceResolve(ctx context.Context, actorID, reason string, at time.Time) error {
	h.initFSM(false)
	if err := h.machine.Trigger(ctx, eventForce); err != nil {
		return ErrAlreadyResolved
	}
	h.ResolvedAt = &at
	h.ResolvedBy = actorID
	h.ResolutionNote = reason
	return nil
}

// Restore 管理员恢复。唯一能清除终态闩锁的路径。
func (h *Hazard) Restore(ctx context.Context) error {
	h.initFSM(false)
	if err := h.machine.Trigger(ctx, eventRestore); err != nil {
		return ErrNotResolved
	}
	h.ResolvedAt = nil
	h.ResolvedBy = ""
	h.ResolutionNote = ""
	return nil
}

// Extend 延长过期时间，无次数上限
func (h *Hazard) Extend(additionalHours int) error {
	if h.LifecyclePolicy != PolicyAutoExpire || h.ExpiresAt == nil {
		return ErrPolicyMismatch
	}
	if h.Resolved() {
		return ErrAlreadyResolved
	}
	if additionalHours <= 0 {
		return ErrValidation
	}
	next := h.ExpiresAt.Add(time.Duration(additionalHours) * time.Hour)
	h.ExpiresAt = &next
	h.ExtendedCount++
	return nil
}

// Validate 校验策略与字段的互斥约束
func (h *Hazard) Validate() error {
	if !h.LifecyclePolicy.Valid() {
		return ErrValidation
	}
	switch h.LifecyclePolicy {
	case PolicyAutoExpire:
		if h.ExpiresAt == nil || h.SeasonalMonths != 0 {
			return ErrValidation
		}
	case PolicySeasonal:
		if h.SeasonalMonths == 0 || h.ExpiresAt != nil {
			return ErrValidation
		}
	default:
		if h.ExpiresAt != nil || h.SeasonalMonths != 0 {
			return ErrValidation
		}
	}
	return nil
}
