package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/hazardwatch/internal/hazard/application"
	"github.com/wyfcoding/hazardwatch/internal/hazard/domain"
)

func TestCastVoteAwardsVoterAndOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.seedHazard(t, nil)

	require.NoError(t, env.voteCmd.CastVote(ctx, application.CastVoteCommand{
		HazardID: h.HazardID, UserID: "voter", VoteType: domain.VoteUp,
	}))

	got := env.reload(t, h.HazardID)
	assert.Equal(t, int64(1), got.VotesUp)
	assert.Equal(t, int64(0), got.VotesDown)
	assert.Equal(t, int64(1), got.VoteScore())

	assert.Equal(t, 1, env.trust.count("voter", domain.TrustVoteCast))
	assert.Equal(t, 1, env.trust.count("owner", domain.TrustHazardUpvoted))
	assert.Equal(t, int64(1), env.auditCount(t, h.HazardID, domain.AuditVoteCast))
}

func TestCastDownvote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.seedHazard(t, nil)

	require.NoError(t, env.voteCmd.CastVote(ctx, application.CastVoteCommand{
		HazardID: h.HazardID, UserID: "voter", VoteType: domain.VoteDown,
	}))

	got := env.reload(t, h.HazardID)
	assert.Equal(t, int64(-1), got.VoteScore())
	assert.Equal(t, 1, env.trust.count("owner", domain.TrustHazardDownvoted))
}

func TestOwnerCannotVoteOwnHazard(t *testing.T) {
	env := newTestEnv(t)
	h := env.seedHazard(t, nil)

	err := env.voteCmd.CastVote(context.Background(), application.CastVoteCommand{
		HazardID: h.HazardID, UserID: "owner", VoteType: domain.VoteUp,
	})
	assert.ErrorIs(t, err, domain.ErrOwnVote)

	got := env.reload(t, h.HazardID)
	assert.Equal(t, int64(0), got.VotesUp)
	assert.Empty(t, env.trust.actions)
}

func TestRepeatSameVoteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.seedHazard(t, nil)
	cmd := application.CastVoteCommand{HazardID: h.HazardID, UserID: "voter", VoteType: domain.VoteUp}

	require.NoError(t, env.voteCmd.CastVote(ctx, cmd))
	require.NoError(t, env.voteCmd.CastVote(ctx, cmd))
	require.NoError(t, env.voteCmd.CastVote(ctx, cmd))

	got := env.reload(t, h.HazardID)
	assert.Equal(t, int64(1), got.VotesUp)
	// 重复投票不再记积分
	assert.Equal(t, 1, env.trust.count("voter", domain.TrustVoteCast))
	assert.Equal(t, 1, env.trust.count("owner", domain.TrustHazardUpvoted))
}

func TestSwitchVoteSwapsCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.seedHazard(t, nil)

	require.NoError(t, env.voteCmd.CastVote(ctx, application.CastVoteCommand{
		HazardID: h.HazardID, UserID: "voter", VoteType: domain.VoteUp,
	}))
	require.NoError(t, env.voteCmd.CastVote(ctx, application.CastVoteCommand{
		HazardID: h.HazardID, UserID: "voter", VoteType: domain.VoteDown,
	}))

	got := env.reload(t, h.HazardID)
	assert.Equal(t, int64(0), got.VotesUp)
	assert.Equal(t, int64(1), got.VotesDown)

	// 改票不重复记投票人积分，业主拿到新方向的事件
	assert.Equal(t, 1, env.trust.count("voter", domain.TrustVoteCast))
	assert.Equal(t, 1, env.trust.count("owner", domain.TrustHazardUpvoted))
	assert.Equal(t, 1, env.trust.count("owner", domain.TrustHazardDownvoted))
}

func TestRemoveVote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.seedHazard(t, nil)

	require.NoError(t, env.voteCmd.CastVote(ctx, application.CastVoteCommand{
		HazardID: h.HazardID, UserID: "voter", VoteType: domain.VoteUp,
	}))
	require.NoError(t, env.voteCmd.RemoveVote(ctx, h.HazardID, "voter"))

	got := env.reload(t, h.HazardID)
	assert.Equal(t, int64(0), got.VotesUp)
	assert.Equal(t, int64(1), env.auditCount(t, h.HazardID, domain.AuditVoteRemoved))

	// 撤票不可逆转历史积分
	assert.Equal(t, 1, env.trust.count("voter", domain.TrustVoteCast))

	status, err := env.query.GetVoteStatus(ctx, h.HazardID, "voter")
	require.NoError(t, err)
	assert.False(t, status.HasVoted)
	assert.True(t, status.Eligible)
}

func TestRemoveVoteWithoutVote(t *testing.T) {
	env := newTestEnv(t)
	h := env.seedHazard(t, nil)

	err := env.voteCmd.RemoveVote(context.Background(), h.HazardID, "voter")
	assert.ErrorIs(t, err, domain.ErrVoteNotFound)
}

func TestCastVoteRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	h := env.seedHazard(t, nil)

	err := env.voteCmd.CastVote(context.Background(), application.CastVoteCommand{
		HazardID: h.HazardID, UserID: "voter", VoteType: "sideways",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = env.voteCmd.CastVote(context.Background(), application.CastVoteCommand{
		HazardID: "HZD-MISSING", UserID: "voter", VoteType: domain.VoteUp,
	})
	assert.ErrorIs(t, err, domain.ErrHazardNotFound)
}

func TestVoteStatusForOwner(t *testing.T) {
	env := newTestEnv(t)
	h := env.seedHazard(t, nil)

	status, err := env.query.GetVoteStatus(context.Background(), h.HazardID, "owner")
	require.NoError(t, err)
	assert.False(t, status.Eligible)
}
