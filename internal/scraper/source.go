package scraper

import (
	"context"

	"jobharvest/pkg/models"
)

// Source is a job board adapter. Search returns the raw listings of one
// results page; an empty page means there are no more results.
type Source interface {
	Name() string
	BaseURL() string
	Search(ctx context.Context, q models.Query) ([]models.RawJob, error)
}

// Catalog is implemented by sources that list every posting on a board instead
// of searching. Their listings are narrowed to the run's keywords and locations.
type Catalog interface {
	Catalog() bool
}

// IsCatalog reports whether src lists whole boards
func IsCatalog(src Source) bool {
	c, ok := src.(Catalog)
	return ok && c.Catalog()
}
