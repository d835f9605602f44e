package application_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/hazardwatch/internal/hazard/application"
	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// 行锁竞争用例需要真 SELECT ... FOR UPDATE，sqlite 单写者模拟不出来。
// 例：TEST_MYSQL_DSN="root:root@tcp(127.0.0.1:3306)/hazardwatch_test?parseTime=true"
func newMySQLTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	env := newTestEnvWithDB(t, db)

	// 库是共享的，清掉上一轮的数据
	for _, model := range []any{
		&domain.Vote{},
		&domain.ResolutionConfirmation{},
		&domain.ResolutionReport{},
		&domain.AuditEntry{},
		&domain.Hazard{},
		&domain.ExpirationSetting{},
	} {
		require.NoError(t, db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error)
	}
	return env
}

func TestConcurrentConfirmationsResolveOnce(t *testing.T) {
	env := newMySQLTestEnv(t)
	ctx := context.Background()

	h := env.seedHazard(t, func(h *domain.Hazard) {
		h.ConfirmationThreshold = 3
	})
	require.NoError(t, env.resolutionCmd.SubmitResolutionReport(ctx, application.SubmitReportCommand{
		HazardID:   h.HazardID,
		ReporterID: "reporter",
		Note:       "cleared the trail",
	}))
	require.NoError(t, env.resolutionCmd.ConfirmResolution(ctx, application.ConfirmationCommand{
		HazardID: h.HazardID,
		UserID:   "c1",
	}))

	// 两个确认并发冲线，灾害行锁串行化后恰好一个触发落终态
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"c2", "c3"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			errs[i] = env.resolutionCmd.ConfirmResolution(ctx, application.ConfirmationCommand{
				HazardID: h.HazardID,
				UserID:   user,
			})
		}(i, user)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			// 输家可能在赢家落终态之后才拿到锁
			require.ErrorIs(t, err, domain.ErrAlreadyResolved)
		}
	}

	got := env.reload(t, h.HazardID)
	require.True(t, got.Resolved())
	assert.Equal(t, "reporter", got.ResolvedBy)
	assert.Equal(t, int64(1), env.auditCount(t, h.HazardID, domain.AuditAutoResolved))
	assert.Equal(t, 1, env.trust.count("owner", domain.TrustResolutionParticipation))
}
