package entities

// Category is one entry of the fixed status category catalog. Labels are
// French and served as-is; clients localize if they need to.
type Category struct {
	Key       string
	Label     string
	AdminOnly bool
}

var categories = []Category{
	{Key: "annonces", Label: "Annonces"},
	{Key: "business", Label: "Business"},
	{Key: "emploi", Label: "Emploi"},
	{Key: "evenements", Label: "Événements"},
	{Key: "immobilier", Label: "Immobilier"},
	{Key: "vente", Label: "Vente & Achat"},
	{Key: "education", Label: "Éducation"},
	{Key: "sante", Label: "Santé & Bien-être"},
	{Key: "sport", Label: "Sport"},
	{Key: "divertissement", Label: "Divertissement"},
	{Key: "officiel", Label: "Officiel", AdminOnly: true},
	{Key: "publicite", Label: "Publicité", AdminOnly: true},
}

// Categories returns the catalog in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryByKey resolves a catalog entry. The second return value reports
// whether the key exists.
func CategoryByKey(key string) (Category, bool) {
	for _, category := range categories {
		if category.Key == key {
			return category, true
		}
	}
	return Category{}, false
}
