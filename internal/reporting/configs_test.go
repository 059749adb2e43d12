package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFor(t *testing.T) {
	cfg, ok := ConfigFor("sbAds")
	require.True(t, ok)
	assert.True(t, cfg.RetentionLimited)
	assert.Equal(t, AdProductSponsoredBrands, cfg.AdProduct)

	_, ok = ConfigFor("unknown")
	assert.False(t, ok)
}

func TestConfigs_UniqueKeys(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range Configs {
		assert.False(t, seen[c.Key], "duplicate key %s", c.Key)
		seen[c.Key] = true
		assert.NotEmpty(t, c.ReportTypeID)
		assert.NotEmpty(t, c.Columns)
	}
}

func TestConfig_Window(t *testing.T) {
	day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	daily, _ := ConfigFor("spCampaigns")
	start, end := daily.Window(day)
	assert.Equal(t, day, start)
	assert.Equal(t, day, end)
	assert.Equal(t, "SP Campaigns 2026-10-17", daily.ReportName(day))

	limited, _ := ConfigFor("sbPlacements")
	start, end = limited.Window(day)
	assert.Equal(t, "2026-09-18", start.Format(DateLayout))
	assert.Equal(t, "2026-10-18", end.Format(DateLayout))
	assert.Equal(t, "SB Placements 2026-10-17 (30-day retention)", limited.ReportName(day))
}

func TestNewRequest(t *testing.T) {
	cfg, _ := ConfigFor("spTargeting")
	day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	req := NewRequest(cfg, "n", day, day)

	assert.Equal(t, "2026-10-17", req.StartDate)
	assert.Equal(t, "2026-10-17", req.EndDate)
	assert.Equal(t, TimeUnitDaily, req.Configuration.TimeUnit)
	assert.Equal(t, FormatGzipJSON, req.Configuration.Format)
	assert.Equal(t, "spTargeting", req.Configuration.ReportTypeID)
	assert.Len(t, req.Configuration.Filters, 1)
}
