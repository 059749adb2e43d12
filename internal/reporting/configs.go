package reporting

import "time"

// RetentionWindow is how far back retention-limited reports are requested.
const RetentionWindow = 30 * 24 * time.Hour

// Config describes one report type requested per profile and day.
type Config struct {
	Key          string
	Name         string
	ReportTypeID string
	AdProduct    string
	GroupBy      []string
	Columns      []string
	Filters      []Filter
	// RetentionLimited reports are only kept upstream for a short period, so
	// they are requested over RetentionWindow instead of a single day.
	RetentionLimited bool
}

// Filter narrows a report to field values.
type Filter struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

const (
	AdProductSponsoredProducts = "SPONSORED_PRODUCTS"
	AdProductSponsoredBrands   = "SPONSORED_BRANDS"
	AdProductSponsoredDisplay  = "SPONSORED_DISPLAY"
)

var baseColumns = []string{"date", "impressions", "clicks", "cost", "purchases7d", "sales7d"}

func withBase(cols ...string) []string {
	out := make([]string, 0, len(baseColumns)+len(cols))
	out = append(out, baseColumns...)
	return append(out, cols...)
}

// Configs are the reports requested for every connected profile.
var Configs = []Config{
	{
		Key:          "spCampaigns",
		Name:         "SP Campaigns",
		ReportTypeID: "spCampaigns",
		AdProduct:    AdProductSponsoredProducts,
		GroupBy:      []string{"campaign"},
		Columns:      withBase("campaignId", "campaignName", "campaignStatus", "campaignBudgetAmount"),
	},
	{
		Key:          "spTargeting",
		Name:         "SP Targeting",
		ReportTypeID: "spTargeting",
		AdProduct:    AdProductSponsoredProducts,
		GroupBy:      []string{"targeting"},
		Columns:      withBase("campaignId", "adGroupId", "keywordId", "keyword", "matchType"),
		Filters:      []Filter{{Field: "keywordType", Values: []string{"BROAD", "PHRASE", "EXACT"}}},
	},
	{
		Key:          "spSearchTerm",
		Name:         "SP Search Terms",
		ReportTypeID: "spSearchTerm",
		AdProduct:    AdProductSponsoredProducts,
		GroupBy:      []string{"searchTerm"},
		Columns:      withBase("campaignId", "adGroupId", "searchTerm", "keywordId"),
	},
	{
		Key:          "spAdvertisedProduct",
		Name:         "SP Advertised Products",
		ReportTypeID: "spAdvertisedProduct",
		AdProduct:    AdProductSponsoredProducts,
		GroupBy:      []string{"advertiser"},
		Columns:      withBase("campaignId", "adGroupId", "advertisedAsin", "advertisedSku"),
	},
	{
		Key:              "sbAds",
		Name:             "SB Ads",
		ReportTypeID:     "sbAds",
		AdProduct:        AdProductSponsoredBrands,
		GroupBy:          []string{"ads"},
		Columns:          withBase("campaignId", "adGroupId", "adId"),
		RetentionLimited: true,
	},
	{
		Key:              "sbPlacements",
		Name:             "SB Placements",
		ReportTypeID:     "sbCampaignPlacement",
		AdProduct:        AdProductSponsoredBrands,
		GroupBy:          []string{"campaignPlacement"},
		Columns:          withBase("campaignId", "placementClassification"),
		RetentionLimited: true,
	},
	{
		Key:          "sdCampaigns",
		Name:         "SD Campaigns",
		ReportTypeID: "sdCampaigns",
		AdProduct:    AdProductSponsoredDisplay,
		GroupBy:      []string{"campaign"},
		Columns:      withBase("campaignId", "campaignName", "campaignStatus"),
	},
}

// ConfigFor looks up a report config by key.
func ConfigFor(key string) (Config, bool) {
	for _, c := range Configs {
		if c.Key == key {
			return c, true
		}
	}
	return Config{}, false
}

// Window returns the date range requested for day. Retention-limited
// reports cover RetentionWindow ending today, where today is day plus one.
func (c Config) Window(day time.Time) (start, end time.Time) {
	if !c.RetentionLimited {
		return day, day
	}
	today := day.AddDate(0, 0, 1)
	return today.Add(-RetentionWindow), today
}

// ReportName is the display name stored with the report row.
func (c Config) ReportName(day time.Time) string {
	name := c.Name + " " + day.Format(DateLayout)
	if c.RetentionLimited {
		name += " (30-day retention)"
	}
	return name
}
