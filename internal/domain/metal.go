package domain

// MetalType identifies a tradeable metal variant. Values match the price
// snapshot columns.
type MetalType string

const (
	MetalGold24K MetalType = "gold24K"
	MetalGold22K MetalType = "gold22K"
	MetalSilver  MetalType = "silver"
)

func (m MetalType) Valid() bool {
	switch m {
	case MetalGold24K, MetalGold22K, MetalSilver:
		return true
	}
	return false
}
