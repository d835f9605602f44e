package application_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/hazardwatch/internal/trust/application"
	"github.com/wyfcoding/hazardwatch/internal/trust/domain"
	"github.com/wyfcoding/hazardwatch/internal/trust/infrastructure/persistence/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestCommandService(t *testing.T) (*application.TrustCommandService, *application.TrustQueryService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.TrustScore{},
		&domain.TrustScoreEvent{},
		&domain.ActionConfig{},
	))

	configRepo := mysql.NewConfigRepository(db)
	for _, ac := range domain.DefaultActionConfigs() {
		require.NoError(t, configRepo.Upsert(context.Background(), &ac))
	}

	configCache := domain.NewConfigCache(configRepo)
	require.NoError(t, configCache.Reload(context.Background()))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scoreRepo := mysql.NewScoreRepository(db)
	eventRepo := mysql.NewEventRepository(db)

	cmd := application.NewTrustCommandService(scoreRepo, eventRepo, configCache, nil, nil, db, logger)
	query := application.NewTrustQueryService(scoreRepo, eventRepo, nil)
	return cmd, query, db
}

func TestRecordEventCreatesLedgerAndSnapshot(t *testing.T) {
	cmd, query, _ := newTestCommandService(t)
	ctx := context.Background()

	event, err := cmd.RecordEvent(ctx, application.RecordEventCommand{
		UserID:      "u1",
		EventType:   domain.EventHazardReported,
		RelatedType: "hazard",
		RelatedID:   "HZD-1",
	})
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, int64(0), event.PreviousScore)
	assert.Equal(t, int64(10), event.NewScore)
	assert.NotEmpty(t, event.EventID)

	dto, err := query.GetScore(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), dto.Score)
}

func TestRecordEventAccumulates(t *testing.T) {
	cmd, query, _ := newTestCommandService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cmd.RecordEvent(ctx, application.RecordEventCommand{
			UserID:    "u1",
			EventType: domain.EventVoteCast,
		})
		require.NoError(t, err)
	}

	dto, err := query.GetScore(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), dto.Score)
}

func TestScoreClampedAtZero(t *testing.T) {
	cmd, query, _ := newTestCommandService(t)
	ctx := context.Background()

	_, err := cmd.RecordEvent(ctx, application.RecordEventCommand{
		UserID:    "u1",
		EventType: domain.EventHazardReported, // +10
	})
	require.NoError(t, err)

	event, err := cmd.RecordEvent(ctx, application.RecordEventCommand{
		UserID:    "u1",
		EventType: domain.EventSpamReport, // -20
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), event.NewScore)

	dto, err := query.GetScore(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), dto.Score)

	// 账本保留真实分差，钳制只发生在快照
	assert.Equal(t, int64(-20), event.PointsChange)
}

func TestRecordEventFailOpenForUnpricedAction(t *testing.T) {
	cmd, query, db := newTestCommandService(t)
	ctx := context.Background()

	// 停用该动作后重载快照
	require.NoError(t, db.Model(&domain.ActionConfig{}).
		Where("action_key = ?", domain.EventVoteCast).
		Update("active", false).Error)
	require.NoError(t, cmd.ReloadConfig(ctx))

	event, err := cmd.RecordEvent(ctx, application.RecordEventCommand{
		UserID:    "u1",
		EventType: domain.EventVoteCast,
	})
	require.NoError(t, err)
	assert.Nil(t, event)

	dto, err := query.GetScore(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), dto.Score)
}

func TestAdjustScoreRequiresAdminAndReason(t *testing.T) {
	cmd, _, _ := newTestCommandService(t)
	ctx := context.Background()

	_, err := cmd.AdjustScore(ctx, application.AdjustScoreCommand{UserID: "u1", Delta: 5, Reason: "manual"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = cmd.AdjustScore(ctx, application.AdjustScoreCommand{UserID: "u1", Delta: 5, AdminID: "admin"})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	event, err := cmd.AdjustScore(ctx, application.AdjustScoreCommand{UserID: "u1", Delta: 5, Reason: "manual", AdminID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), event.NewScore)
	assert.Equal(t, domain.EventAdminAdjustment, event.EventType)
	assert.Contains(t, event.Note, "admin")
}

func TestGetHistoryNewestFirst(t *testing.T) {
	cmd, query, _ := newTestCommandService(t)
	ctx := context.Background()

	types := []domain.EventType{domain.EventHazardReported, domain.EventVoteCast, domain.EventResolutionReported}
	for _, et := range types {
		_, err := cmd.RecordEvent(ctx, application.RecordEventCommand{UserID: "u1", EventType: et})
		require.NoError(t, err)
	}

	events, total, err := query.GetHistory(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, events, 3)
	assert.Equal(t, string(domain.EventResolutionReported), events[0].EventType)
	assert.Equal(t, string(domain.EventHazardReported), events[2].EventType)
}

func TestGetBreakdownGroupsByType(t *testing.T) {
	cmd, query, _ := newTestCommandService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cmd.RecordEvent(ctx, application.RecordEventCommand{UserID: "u1", EventType: domain.EventVoteCast})
		require.NoError(t, err)
	}
	_, err := cmd.RecordEvent(ctx, application.RecordEventCommand{UserID: "u1", EventType: domain.EventHazardReported})
	require.NoError(t, err)

	rows, err := query.GetBreakdown(ctx, "u1")
	require.NoError(t, err)

	byType := make(map[domain.EventType]int64)
	for _, row := range rows {
		byType[row.EventType] = row.TotalPoints
	}
	assert.Equal(t, int64(4), byType[domain.EventVoteCast])
	assert.Equal(t, int64(10), byType[domain.EventHazardReported])
}

func TestGetScoreUnknownUserReturnsZero(t *testing.T) {
	_, query, _ := newTestCommandService(t)

	dto, err := query.GetScore(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), dto.Score)
	assert.Equal(t, domain.TierNewUser, dto.Tier)
}

func TestLedgerReconcilesWithSnapshot(t *testing.T) {
	cmd, query, db := newTestCommandService(t)
	ctx := context.Background()
	events := mysql.NewEventRepository(db)

	seq := []domain.EventType{
		domain.EventHazardReported, // +10
		domain.EventSpamReport,     // -20，中途触发下限截断
		domain.EventVoteCast,       // +2
		domain.EventVoteCast,       // +2
	}
	for _, eventType := range seq {
		_, err := cmd.RecordEvent(ctx, application.RecordEventCommand{UserID: "u1", EventType: eventType})
		require.NoError(t, err)
	}

	// 账本记原始分值变动，不截断
	sum, err := events.SumPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(-6), sum)

	history, total, err := query.GetHistory(ctx, "u1", 100, 0)
	require.NoError(t, err)
	require.Equal(t, int64(len(seq)), total)

	// 逐笔重放（每步下限截断）必须对得上快照，原始和对得上 SumPoints
	replay := int64(0)
	raw := int64(0)
	for i := len(history) - 1; i >= 0; i-- { // 新在前，倒着放
		e := history[i]
		assert.Equal(t, replay, e.PreviousScore)
		replay += e.PointsChange
		if replay < 0 {
			replay = 0
		}
		assert.Equal(t, replay, e.NewScore)
		raw += e.PointsChange
	}
	assert.Equal(t, sum, raw)

	score, err := query.GetScore(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, replay, score.Score)
	assert.Equal(t, int64(4), score.Score)
}
