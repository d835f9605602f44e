package application_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/hazardwatch/internal/hazard/application"
	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	hazardmysql "github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/persistence/mysql"
	"github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/trustbridge"
	trustapp "github.com/wyfcoding/hazardwatch/internal/trust/application"
	trustdomain "github.com/wyfcoding/hazardwatch/internal/trust/domain"
	trustmysql "github.com/wyfcoding/hazardwatch/internal/trust/infrastructure/persistence/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// 两个上下文共库跑真实信誉分服务，验证投票事务里同步落账
func TestVoteRecordsRealTrustLedger(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Hazard{},
		&domain.Vote{},
		&domain.AuditEntry{},
		&trustdomain.TrustScore{},
		&trustdomain.TrustScoreEvent{},
		&trustdomain.ActionConfig{},
	))

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	configRepo := trustmysql.NewConfigRepository(db)
	for _, ac := range trustdomain.DefaultActionConfigs() {
		require.NoError(t, configRepo.Upsert(ctx, &ac))
	}
	configCache := trustdomain.NewConfigCache(configRepo)
	require.NoError(t, configCache.Reload(ctx))

	trustCmd := trustapp.NewTrustCommandService(
		trustmysql.NewScoreRepository(db),
		trustmysql.NewEventRepository(db),
		configCache,
		nil, nil, db, logger,
	)
	trustQuery := trustapp.NewTrustQueryService(trustmysql.NewScoreRepository(db), trustmysql.NewEventRepository(db), nil)

	hazards := hazardmysql.NewHazardRepository(db)
	voteCmd := application.NewVoteCommandService(
		hazards,
		hazardmysql.NewVoteRepository(db),
		hazardmysql.NewAuditRepository(db),
		trustbridge.NewRecorder(trustCmd),
		nil, logger,
	)

	h := &domain.Hazard{
		HazardID:        "HZD-INT-1",
		OwnerID:         "owner",
		Title:           "washed out bridge",
		Category:        "trail/obstruction",
		LifecyclePolicy: domain.PolicyUserResolvable,
	}
	require.NoError(t, hazards.Save(ctx, h))

	require.NoError(t, voteCmd.CastVote(ctx, application.CastVoteCommand{
		HazardID: h.HazardID, UserID: "voter", VoteType: domain.VoteUp,
	}))

	// 投票人 vote_cast +2，业主 hazard_upvoted +2
	voter, err := trustQuery.GetScore(ctx, "voter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), voter.Score)

	owner, err := trustQuery.GetScore(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(2), owner.Score)

	// 账本各有一条对应记录
	events, total, err := trustQuery.GetHistory(ctx, "voter", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, string(trustdomain.EventVoteCast), events[0].EventType)
	assert.Equal(t, h.HazardID, events[0].RelatedID)
}
