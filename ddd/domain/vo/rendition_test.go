package vo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTiersNeverUpscales(t *testing.T) {
	tiers := SelectTiers(500, true)
	require.NotEmpty(t, tiers)
	for _, tier := range tiers {
		assert.LessOrEqual(t, tier.Height, 500)
	}

	labels := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		labels = append(labels, tier.Label)
	}
	assert.Equal(t, []string{"360", "480"}, labels)
}

func TestSelectTiersFloorBehavior(t *testing.T) {
	// 源比最低档还小，保底生成最低档
	tiers := SelectTiers(200, true)
	require.Len(t, tiers, 1)
	assert.Equal(t, "360", tiers[0].Label)

	// 保底关闭时不生成任何档位
	assert.Empty(t, SelectTiers(200, false))
}

func TestSelectTiersFullLadder(t *testing.T) {
	tiers := SelectTiers(1080, true)
	require.Len(t, tiers, 4)
	assert.Equal(t, "1080", tiers[3].Label)
}

func TestQualityTierDerivedValues(t *testing.T) {
	tier, ok := TierByLabel("720")
	require.True(t, ok)
	assert.Equal(t, 5600, tier.BufsizeKbps())
	assert.Equal(t, (2800+128)*1000, tier.BandwidthBps())
	assert.Equal(t, "1280x720", tier.Resolution())

	_, ok = TierByLabel("144")
	assert.False(t, ok)
}

func TestQualityLadderReturnsCopy(t *testing.T) {
	ladder := QualityLadder()
	ladder[0].Label = "mutated"
	assert.Equal(t, "360", FloorTier().Label)
}
