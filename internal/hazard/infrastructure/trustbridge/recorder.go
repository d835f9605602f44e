// Package trustbridge 把灾害侧的积分动作桥接到信誉分服务。
// 两个限界上下文共用一个数据库实例，记账通过 contextx 挂进触发方的事务。
package trustbridge

import (
	"context"

	hazarddomain "github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/hazardwatch/internal/trust/application"
	trustdomain "github.com/wyfcoding/hazardwatch/internal/trust/domain"
)

type recorder struct {
	trust *application.TrustCommandService
}

func NewRecorder(trust *application.TrustCommandService) hazarddomain.TrustRecorder {
	return &recorder{trust: trust}
}

// Record 进账本。fail-open 语义由信誉分服务保证：
// 未配置分值时返回 nil 事件而不是错误，触发方事务照常提交。
func (r *recorder) Record(ctx context.Context, userID, action, relatedType, relatedID, note string) error {
	_, err := r.trust.RecordEvent(ctx, application.RecordEventCommand{
		UserID:      userID,
		EventType:   trustdomain.EventType(action),
		RelatedType: relatedType,
		RelatedID:   relatedID,
		Note:        note,
	})
	return err
}
