package service

import (
	"context"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAccessTierContainment(t *testing.T) {
	tests := []struct {
		name       string
		subTier    string
		request    string
		wantAccess bool
	}{
		{"premium reads premium", model.TierPremium, model.TierPremium, true},
		{"premium cannot read enterprise", model.TierPremium, model.TierEnterprise, false},
		{"enterprise reads premium", model.TierEnterprise, model.TierPremium, true},
		{"enterprise reads enterprise", model.TierEnterprise, model.TierEnterprise, true},
		{"free subscriber reads premium", model.TierFree, model.TierPremium, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			n := f.node(t, "node", model.NodeStatusActive)

			_, err := f.access.CreateSubscription(ctx, CreateSubscriptionRequest{
				UserID:  "user-1",
				NodeID:  n.ID,
				Tier:    tt.subTier,
				EndDate: time.Now().Add(30 * 24 * time.Hour),
			})
			require.NoError(t, err)

			d, err := f.access.CheckAccess(ctx, "user-1", n.ID, tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAccess, d.HasPremiumAccess)
			assert.Equal(t, tt.wantAccess, d.Allowed)
			assert.True(t, d.HasFreeAccess)
			assert.Equal(t, tt.subTier, d.SubscriptionLevel)
			assert.NotNil(t, d.Expiry)
		})
	}
}

func TestCheckAccessWithoutSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.node(t, "node", model.NodeStatusActive)

	d, err := f.access.CheckAccess(ctx, "nobody", n.ID, model.TierPremium)
	require.NoError(t, err)
	assert.False(t, d.HasPremiumAccess)
	assert.False(t, d.Allowed)
	assert.True(t, d.HasFreeAccess)
	assert.Equal(t, model.TierFree, d.SubscriptionLevel)
	assert.Nil(t, d.Expiry)
}

func TestCheckAccessIgnoresExpiredAndOtherNodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.node(t, "node", model.NodeStatusActive)
	other := f.node(t, "other", model.NodeStatusActive)

	_, err := f.access.CreateSubscription(ctx, CreateSubscriptionRequest{
		UserID:    "user-1",
		NodeID:    n.ID,
		Tier:      model.TierEnterprise,
		StartDate: time.Now().Add(-60 * 24 * time.Hour),
		EndDate:   time.Now().Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	_, err = f.access.CreateSubscription(ctx, CreateSubscriptionRequest{
		UserID:  "user-1",
		NodeID:  other.ID,
		Tier:    model.TierEnterprise,
		EndDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	d, err := f.access.CheckAccess(ctx, "user-1", n.ID, model.TierPremium)
	require.NoError(t, err)
	assert.False(t, d.HasPremiumAccess)

	d, err = f.access.CheckAccess(ctx, "user-1", other.ID, model.TierPremium)
	require.NoError(t, err)
	assert.True(t, d.HasPremiumAccess)
}

func TestCheckAccessFreeTierSkipsLookup(t *testing.T) {
	// 没有订阅仓库也能判定免费内容
	s := &AccessService{now: time.Now}

	d, err := s.CheckAccess(context.Background(), "anyone", "any-node", model.TierFree)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.HasFreeAccess)
	assert.False(t, d.HasPremiumAccess)
	assert.Equal(t, model.TierFree, d.SubscriptionLevel)

	_, err = s.CheckAccess(context.Background(), "anyone", "any-node", "platinum")
	assert.ErrorIs(t, err, util.ErrInvalidTier)
}

func TestCreateSubscriptionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.node(t, "node", model.NodeStatusActive)

	_, err := f.access.CreateSubscription(ctx, CreateSubscriptionRequest{
		UserID: "u", NodeID: n.ID, Tier: "gold", EndDate: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, util.ErrInvalidTier)

	_, err = f.access.CreateSubscription(ctx, CreateSubscriptionRequest{
		UserID: "u", NodeID: n.ID, Tier: model.TierPremium, EndDate: time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	_, err = f.access.CreateSubscription(ctx, CreateSubscriptionRequest{
		UserID: "u", NodeID: "missing", Tier: model.TierPremium, EndDate: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, util.ErrNodeNotFound)
}
