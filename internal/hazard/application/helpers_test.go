package application_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/hazardwatch/internal/hazard/application"
	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
	"github.com/wyfcoding/hazardwatch/internal/hazard/infrastructure/persistence/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeRecorder 记录积分动作调用，代替信誉分服务
type fakeRecorder struct {
	mu      sync.Mutex
	actions []recordedAction
}

type recordedAction struct {
	UserID string
	Action string
}

func (f *fakeRecorder) Record(_ context.Context, userID, action, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, recordedAction{UserID: userID, Action: action})
	return nil
}

func (f *fakeRecorder) count(userID, action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.actions {
		if a.UserID == userID && a.Action == action {
			n++
		}
	}
	return n
}

type testEnv struct {
	db       *gorm.DB
	trust    *fakeRecorder
	hazards  *mysql.HazardRepository
	votes    *mysql.VoteRepository
	audit    *mysql.AuditRepository
	settings *mysql.SettingRepository

	hazardCmd     *application.HazardCommandService
	voteCmd       *application.VoteCommandService
	resolutionCmd *application.ResolutionCommandService
	query         *application.HazardQueryService
	sweeper       *application.ExpirationSweepService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return newTestEnvWithDB(t, db)
}

func newTestEnvWithDB(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()

	require.NoError(t, db.AutoMigrate(
		&domain.Hazard{},
		&domain.Vote{},
		&domain.ResolutionReport{},
		&domain.ResolutionConfirmation{},
		&domain.AuditEntry{},
		&domain.ExpirationSetting{},
	))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trust := &fakeRecorder{}

	hazards := mysql.NewHazardRepository(db)
	votes := mysql.NewVoteRepository(db)
	resolutions := mysql.NewResolutionRepository(db)
	audit := mysql.NewAuditRepository(db)
	settings := mysql.NewSettingRepository(db)

	return &testEnv{
		db:       db,
		trust:    trust,
		hazards:  hazards,
		votes:    votes,
		audit:    audit,
		settings: settings,

		hazardCmd:     application.NewHazardCommandService(hazards, settings, audit, trust, nil, nil, logger),
		voteCmd:       application.NewVoteCommandService(hazards, votes, audit, trust, nil, logger),
		resolutionCmd: application.NewResolutionCommandService(hazards, resolutions, audit, trust, nil, nil, logger),
		query:         application.NewHazardQueryService(hazards, votes, resolutions, audit, nil, nil, logger),
		sweeper:       application.NewExpirationSweepService(hazards, audit, nil, nil, logger),
	}
}

var hazardSeq int

// seedHazard 直接落一条灾害记录，绕过创建流程
func (e *testEnv) seedHazard(t *testing.T, mutate func(*domain.Hazard)) *domain.Hazard {
	t.Helper()
	hazardSeq++
	h := &domain.Hazard{
		HazardID:              fmt.Sprintf("HZD-TEST-%d", hazardSeq),
		OwnerID:               "owner",
		Title:                 "fallen tree on trail",
		Category:              "trail/obstruction",
		Severity:              2,
		LifecyclePolicy:       domain.PolicyUserResolvable,
		ConfirmationThreshold: domain.DefaultConfirmationThreshold,
	}
	if mutate != nil {
		mutate(h)
	}
	require.NoError(t, e.hazards.Save(context.Background(), h))
	return h
}

func (e *testEnv) auditCount(t *testing.T, hazardID, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&domain.AuditEntry{}).
		Where("hazard_id = ? AND action = ?", hazardID, action).
		Count(&n).Error)
	return n
}

func (e *testEnv) reload(t *testing.T, hazardID string) *domain.Hazard {
	t.Helper()
	h, err := e.hazards.Get(context.Background(), hazardID)
	require.NoError(t, err)
	return h
}

func hoursFromNow(h int) *time.Time {
	ts := time.Now().Add(time.Duration(h) * time.Hour)
	return &ts
}
