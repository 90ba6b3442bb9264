package enums

// ProductType categorizes the consumables institutions order.
type ProductType string

const (
	ProductTypeGlove  ProductType = "glove"
	ProductTypeLiquid ProductType = "liquid"
	ProductTypeWipe   ProductType = "wipe"
)

func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeGlove, ProductTypeLiquid, ProductTypeWipe:
		return true
	default:
		return false
	}
}
