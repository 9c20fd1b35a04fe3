package models

// ── Shop ──────────────────────────────────────────────────

// ItemEffect identifies what a shop item does when purchased.
type ItemEffect string

const (
	EffectXPBoost2x    ItemEffect = "xp_boost_2x"
	EffectHintReveal   ItemEffect = "hint_reveal"
	EffectSkipQuestion ItemEffect = "skip_question"
	EffectStreakFreeze ItemEffect = "streak_freeze"
	EffectStreakRepair ItemEffect = "streak_repair"
	EffectCosmetic     ItemEffect = "cosmetic"
)

// ShopItem is a catalog entry. The catalog is static; purchases are
// transactional events against the user's coin balance.
type ShopItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Cost        int64      `json:"cost"`
	Effect      ItemEffect `json:"effect"`
}

type ShopItemsResponse struct {
	Items []ShopItem `json:"items"`
}
