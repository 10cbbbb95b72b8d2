package utils

import (
	"testing"

	"bre/src/types"

	"github.com/stretchr/testify/assert"
)

func TestBuildPriceLookupKeyNormalization(t *testing.T) {
	key := BuildPriceLookupKey(types.SCOPE_PLATFORM, "", "Pro Plan!", " USD ", 999, "month")
	assert.Equal(t, "bre_platform_none_pro_plan_usd_999_month", key)
}

func TestBuildPriceLookupKeyDeterminism(t *testing.T) {
	a := BuildPriceLookupKey(types.SCOPE_APP, "app-1", "gold", "usd", 1500, "month")
	b := BuildPriceLookupKey(types.SCOPE_APP, "app-1", "gold", "usd", 1500, "month")
	assert.Equal(t, a, b)

	c := BuildPriceLookupKey(types.SCOPE_APP, "app-1", "gold", "usd", 1501, "month")
	assert.NotEqual(t, a, c)
}

func TestBuildPriceLookupKeyCollapsesSeparators(t *testing.T) {
	a := BuildPriceLookupKey(types.SCOPE_PLATFORM, "", "pro__plan", "usd", 999, "month")
	b := BuildPriceLookupKey(types.SCOPE_PLATFORM, "", "pro plan", "usd", 999, "month")
	assert.Equal(t, a, b)
	assert.NotContains(t, a, "__")
}

func TestBuildPriceLookupKeyScopesDiffer(t *testing.T) {
	platform := BuildPriceLookupKey(types.SCOPE_PLATFORM, "", "gold", "usd", 999, "month")
	app := BuildPriceLookupKey(types.SCOPE_APP, "app-1", "gold", "usd", 999, "month")
	assert.NotEqual(t, platform, app)
}

func TestBuildMonetizationLookupKey(t *testing.T) {
	key := BuildMonetizationLookupKey("app-1", "gold", "usd", 1500, "month", "deadbeefdeadbeefdeadbeef", 2)
	assert.Equal(t, "bre_app_app_1_gold_usd_1500_month_v2_deadbeefdead", key)

	same := BuildMonetizationLookupKey("app-1", "gold", "usd", 1500, "month", "deadbeefdeadbeefdeadbeef", 2)
	assert.Equal(t, key, same)

	bumped := BuildMonetizationLookupKey("app-1", "gold", "usd", 1500, "month", "deadbeefdeadbeefdeadbeef", 3)
	assert.NotEqual(t, key, bumped)
}
