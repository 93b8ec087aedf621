package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveprices/config"
	"driveprices/internal/listing"
)

func TestCreateCrawlers(t *testing.T) {
	cfg := &config.Config{Categories: config.DefaultCategories()}
	env := Env{Cache: NewMockCacheService()}

	crawlers, err := CreateCrawlers(cfg, env)
	require.NoError(t, err)
	require.Len(t, crawlers, len(cfg.Categories))

	byName := map[string]Crawler{}
	for _, c := range crawlers {
		byName[c.GetName()] = c
	}

	assert.Contains(t, byName, "Newegg/internal_35")
	assert.Contains(t, byName, "Newegg/ssd_sata")
	assert.Contains(t, byName, "Amazon/amazon_internal")
	assert.Contains(t, byName, "ServerPartDeals/spd_recertified")

	assert.Equal(t, listing.RetailerNewegg, byName["Newegg/internal_35"].GetRetailer())
	assert.Equal(t, `3.5" internal drives`, byName["Newegg/internal_35"].GetLabel())
}

func TestCreateCrawlersRejectsUnknownRetailer(t *testing.T) {
	cfg := &config.Config{
		Categories: []config.Category{
			{Name: "bb", Retailer: "BestBuy", URL: "https://www.bestbuy.com", MaxPages: 1},
		},
	}

	_, err := CreateCrawlers(cfg, Env{Cache: NewMockCacheService()})
	assert.Error(t, err)
}
