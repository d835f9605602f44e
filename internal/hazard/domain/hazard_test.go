package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestStatusAtAutoExpire(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h := &Hazard{
		LifecyclePolicy: PolicyAutoExpire,
		ExpiresAt:       timePtr(now.Add(48 * time.Hour)),
	}

	assert.Equal(t, StatusActive, h.StatusAt(now, false))
	assert.Equal(t, StatusExpiringSoon, h.StatusAt(now.Add(30*time.Hour), false))
	assert.Equal(t, StatusExpired, h.StatusAt(now.Add(48*time.Hour), false))
	assert.Equal(t, StatusExpired, h.StatusAt(now.Add(72*time.Hour), false))
}

func TestStatusAtAutoExpireLatchedBySystem(t *testing.T) {
	now := time.Now()
	h := &Hazard{
		LifecyclePolicy: PolicyAutoExpire,
		ExpiresAt:       timePtr(now.Add(-time.Hour)),
		ResolvedAt:      timePtr(now.Add(-time.Hour)),
		ResolvedBy:      "", // 系统落锁
	}
	assert.Equal(t, StatusExpired, h.StatusAt(now, false))

	h.ResolvedBy = "admin"
	assert.Equal(t, StatusResolved, h.StatusAt(now, false))
}

func TestStatusAtSeasonal(t *testing.T) {
	months, err := NewMonthSet([]int{5, 6, 7, 8, 9})
	require.NoError(t, err)
	h := &Hazard{LifecyclePolicy: PolicySeasonal, SeasonalMonths: months}

	june := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	december := time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, StatusActive, h.StatusAt(june, false))
	assert.Equal(t, StatusDormant, h.StatusAt(december, false))
}

func TestStatusAtPermanentAndUserResolvable(t *testing.T) {
	now := time.Now()

	permanent := &Hazard{LifecyclePolicy: PolicyPermanent}
	assert.Equal(t, StatusActive, permanent.StatusAt(now, false))

	resolvable := &Hazard{LifecyclePolicy: PolicyUserResolvable}
	assert.Equal(t, StatusActive, resolvable.StatusAt(now, false))
	assert.Equal(t, StatusPendingResolution, resolvable.StatusAt(now, true))
}

func TestResolveIsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	h := &Hazard{LifecyclePolicy: PolicyUserResolvable}

	require.NoError(t, h.Resolve(ctx, "u2", "fixed", now))
	assert.True(t, h.Resolved())
	assert.Equal(t, "u2", h.ResolvedBy)

	err := h.Resolve(ctx, "u3", "again", now)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Equal(t, "u2", h.ResolvedBy)
}

func TestBeginResolutionRequiresPolicy(t *testing.T) {
	ctx := context.Background()

	h := &Hazard{LifecyclePolicy: PolicyPermanent}
	assert.ErrorIs(t, h.BeginResolution(ctx), ErrPolicyMismatch)

	h = &Hazard{LifecyclePolicy: PolicyUserResolvable}
	require.NoError(t, h.BeginResolution(ctx))

	h.ResolvedAt = timePtr(time.Now())
	assert.ErrorIs(t, h.BeginResolution(ctx), ErrAlreadyResolved)
}

func TestForceResolveAnyPolicy(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for _, policy := range []LifecyclePolicy{PolicyAutoExpire, PolicyUserResolvable, PolicyPermanent, PolicySeasonal} {
		h := &Hazard{LifecyclePolicy: policy}
		require.NoError(t, h.ForceResolve(ctx, "admin", "construction done", now), "policy %s", policy)
		assert.True(t, h.Resolved())
	}
}

func TestRestoreClearsLatch(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	h := &Hazard{LifecyclePolicy: PolicyPermanent}
	assert.ErrorIs(t, h.Restore(ctx), ErrNotResolved)

	require.NoError(t, h.ForceResolve(ctx, "admin", "done", now))
	require.NoError(t, h.Restore(ctx))
	assert.False(t, h.Resolved())
	assert.Empty(t, h.ResolvedBy)
	assert.Empty(t, h.ResolutionNote)
}

func TestExtend(t *testing.T) {
	now := time.Now()
	expires := now.Add(24 * time.Hour)
	h := &Hazard{LifecyclePolicy: PolicyAutoExpire, ExpiresAt: timePtr(expires)}

	require.NoError(t, h.Extend(48))
	assert.Equal(t, 1, h.ExtendedCount)
	assert.Equal(t, expires.Add(48*time.Hour), *h.ExpiresAt)

	// 可重复延期
	require.NoError(t, h.Extend(24))
	assert.Equal(t, 2, h.ExtendedCount)

	assert.ErrorIs(t, h.Extend(0), ErrValidation)
	assert.ErrorIs(t, h.Extend(-5), ErrValidation)

	h.ResolvedAt = timePtr(now)
	assert.ErrorIs(t, h.Extend(24), ErrAlreadyResolved)

	other := &Hazard{LifecyclePolicy: PolicyPermanent}
	assert.ErrorIs(t, other.Extend(24), ErrPolicyMismatch)
}

func TestValidatePolicyFieldExclusivity(t *testing.T) {
	now := time.Now()
	months, _ := NewMonthSet([]int{1})

	tests := []struct {
		name    string
		hazard  Hazard
		wantErr bool
	}{
		{"auto_expire ok", Hazard{LifecyclePolicy: PolicyAutoExpire, ExpiresAt: timePtr(now)}, false},
		{"auto_expire missing deadline", Hazard{LifecyclePolicy: PolicyAutoExpire}, true},
		{"auto_expire with months", Hazard{LifecyclePolicy: PolicyAutoExpire, ExpiresAt: timePtr(now), SeasonalMonths: months}, true},
		{"seasonal ok", Hazard{LifecyclePolicy: PolicySeasonal, SeasonalMonths: months}, false},
		{"seasonal missing months", Hazard{LifecyclePolicy: PolicySeasonal}, true},
		{"permanent ok", Hazard{LifecyclePolicy: PolicyPermanent}, false},
		{"permanent with deadline", Hazard{LifecyclePolicy: PolicyPermanent, ExpiresAt: timePtr(now)}, true},
		{"unknown policy", Hazard{LifecyclePolicy: "bogus"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hazard.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMonthSet(t *testing.T) {
	_, err := NewMonthSet([]int{0})
	assert.Error(t, err)
	_, err = NewMonthSet([]int{13})
	assert.Error(t, err)

	set, err := NewMonthSet([]int{12, 1, 2})
	require.NoError(t, err)
	assert.True(t, set.Contains(1))
	assert.True(t, set.Contains(12))
	assert.False(t, set.Contains(6))
	assert.Equal(t, []int{1, 2, 12}, set.Months())
}

func TestConfirmationTallyThreshold(t *testing.T) {
	assert.False(t, ConfirmationTally{Confirmed: 2, Disputed: 0}.ThresholdMet(3))
	assert.True(t, ConfirmationTally{Confirmed: 3, Disputed: 0}.ThresholdMet(3))
	// 质疑数不少于确认数时不放行
	assert.False(t, ConfirmationTally{Confirmed: 3, Disputed: 3}.ThresholdMet(3))
	assert.True(t, ConfirmationTally{Confirmed: 4, Disputed: 3}.ThresholdMet(3))
}
