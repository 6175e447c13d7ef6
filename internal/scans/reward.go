package scans

import (
	"strings"

	"github.com/shopspring/decimal"
)

// defaultReward applies when a code declares neither a value nor a known size.
var defaultReward = decimal.NewFromInt(1)

// rewardBySize maps declared container sizes to their deposit value.
var rewardBySize = map[string]decimal.Decimal{
	"250ml": decimal.NewFromFloat(0.50),
	"500ml": decimal.NewFromInt(1),
	"1ltr":  decimal.NewFromInt(1),
	"2ltr":  decimal.NewFromInt(2),
}

// RewardFor computes the payout for a scan. An explicit declared value wins
// verbatim; otherwise the size table applies; otherwise the default.
func RewardFor(declaredValue *decimal.Decimal, declaredSize *string) decimal.Decimal {
	if declaredValue != nil && !declaredValue.IsNegative() {
		return *declaredValue
	}
	if declaredSize != nil {
		key := strings.ToLower(strings.TrimSpace(*declaredSize))
		if reward, ok := rewardBySize[key]; ok {
			return reward
		}
	}
	return defaultReward
}
