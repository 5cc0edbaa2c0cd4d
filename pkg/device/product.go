package device

// ProductType identifies the instrument model from the Type0 product
// code byte.
type ProductType uint8

// Product codes observed in Type0 replies.
const (
	ProductUnknown    ProductType = 0
	ProductNeptune    ProductType = 1
	ProductWave       ProductType = 2
	ProductTracker    ProductType = 3
	ProductDataLogger ProductType = 4
	ProductN3         ProductType = 5
	ProductN3A        ProductType = 6
	ProductAtlas      ProductType = 7
)

// ProductFromCode maps a Type0 product code byte to a ProductType.
// Unlisted codes map to ProductUnknown.
func ProductFromCode(code byte) ProductType {
	if code >= 1 && code <= 7 {
		return ProductType(code)
	}
	return ProductUnknown
}

// String returns the marketing name of the product.
func (p ProductType) String() string {
	switch p {
	case ProductNeptune:
		return "Neptune"
	case ProductWave:
		return "Wave"
	case ProductTracker:
		return "Tracker"
	case ProductDataLogger:
		return "DataLogger"
	case ProductN3:
		return "N3"
	case ProductN3A:
		return "N3A"
	case ProductAtlas:
		return "Atlas"
	default:
		return "Unknown"
	}
}
