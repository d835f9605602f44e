package domain

import (
	"time"

	"gorm.io/gorm"
)

// ExpirationSetting 类目默认生命周期配置。
// 仅在建灾害时读取，改配置不回溯已有灾害。
type ExpirationSetting struct {
	gorm.Model
	Category              string          `gorm:"column:category;type:varchar(60);uniqueIndex;not null" json:"category"`
	DefaultPolicy         LifecyclePolicy `gorm:"column:default_policy;type:varchar(20);not null" json:"default_policy"`
	AutoExpireHours       int             `gorm:"column:auto_expire_hours;default:0;not null" json:"auto_expire_hours"`
	ConfirmationThreshold int             `gorm:"column:confirmation_threshold;default:3;not null" json:"confirmation_threshold"`
	SeasonalMonths        MonthSet        `gorm:"column:seasonal_months;default:0;not null" json:"seasonal_months"`
}

func (ExpirationSetting) TableName() string {
	return "expiration_settings"
}

// AutoExpireDuration 默认过期时长
func (s *ExpirationSetting) AutoExpireDuration() time.Duration {
	return time.Duration(s.AutoExpireHours) * time.Hour
}

// DefaultExpirationSettings 初始类目配置，开发环境建表时播种
func DefaultExpirationSettings() []ExpirationSetting {
	mustMonths := func(months ...int) MonthSet {
		set, _ := NewMonthSet(months)
		return set
	}
	return []ExpirationSetting{
		{Category: "weather/flooding", DefaultPolicy: PolicyAutoExpire, AutoExpireHours: 72, ConfirmationThreshold: DefaultConfirmationThreshold},
		{Category: "weather/fallen-tree", DefaultPolicy: PolicyUserResolvable, ConfirmationThreshold: DefaultConfirmationThreshold},
		{Category: "trail/surface-damage", DefaultPolicy: PolicyUserResolvable, ConfirmationThreshold: DefaultConfirmationThreshold},
		{Category: "terrain/cliff", DefaultPolicy: PolicyPermanent},
		{Category: "wildlife/nesting-season", DefaultPolicy: PolicySeasonal, SeasonalMonths: mustMonths(3, 4, 5, 6, 7)},
		{Category: "terrain/rockfall-season", DefaultPolicy: PolicySeasonal, SeasonalMonths: mustMonths(5, 6, 7, 8, 9)},
	}
}
