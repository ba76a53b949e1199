package models

// Family identifies the storage-schema lineage a browser belongs to.
// Multiple products can share one lineage (Chrome and Edge are both
// chromium), so adapters are selected per family, not per product.
type Family string

const (
	FamilyChromium Family = "chromium"
	FamilyWebKit   Family = "webkit"
	FamilyGecko    Family = "gecko"
)

func (f Family) Valid() bool {
	switch f {
	case FamilyChromium, FamilyWebKit, FamilyGecko:
		return true
	}
	return false
}

// VisitRecord is one normalized history row, the unit of detection and
// emission. It is built inside a source adapter, filtered by the dedup set
// and, if new, handed to the sink; after emission only its URL survives.
type VisitRecord struct {
	Family    Family
	Browser   string // product label written to the record log, e.g. "Chrome"
	URL       string // dedup key; raw bytes, no normalization
	Title     string
	VisitTime string // e.g. "2024-01-01T00:00:00", empty when the store had none
	// VisitCount is nil where the schema exposes no counter (webkit).
	VisitCount *int64
}
