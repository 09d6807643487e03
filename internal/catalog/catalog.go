package catalog

// Guide is a purchasable document in the static catalog. The catalog is the
// source of truth for display names and storage keys; checkout metadata only
// carries guide ids.
type Guide struct {
	ID         string
	Name       string
	FileKey    string
	PriceCents int64
}

const defaultGuideName = "Health Guide"

var guides = map[string]Guide{
	"pcos": {
		ID:         "pcos",
		Name:       "The Complete PCOS Guide",
		FileKey:    "guides/pcos.pdf",
		PriceCents: 2900,
	},
	"endometriosis": {
		ID:         "endometriosis",
		Name:       "Understanding Endometriosis",
		FileKey:    "guides/endometriosis.pdf",
		PriceCents: 2900,
	},
	"thyroid": {
		ID:         "thyroid",
		Name:       "The Thyroid Health Guide",
		FileKey:    "guides/thyroid.pdf",
		PriceCents: 2900,
	},
	"perimenopause": {
		ID:         "perimenopause",
		Name:       "Navigating Perimenopause",
		FileKey:    "guides/perimenopause.pdf",
		PriceCents: 2900,
	},
	"fertility": {
		ID:         "fertility",
		Name:       "The Fertility Handbook",
		FileKey:    "guides/fertility.pdf",
		PriceCents: 3400,
	},
	"hormone-bundle": {
		ID:         "hormone-bundle",
		Name:       "The Hormone Health Bundle",
		FileKey:    "guides/hormone-bundle.pdf",
		PriceCents: 7900,
	},
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (Guide, bool) {
	g, ok := guides[id]
	return g, ok
}

// ResolveName returns the display name for a guide id: the catalog name when
// the id is known, then the caller-provided fallback, then a generic default.
func ResolveName(id, fallback string) string {
	if g, ok := guides[id]; ok {
		return g.Name
	}
	if fallback != "" {
		return fallback
	}
	return defaultGuideName
}
