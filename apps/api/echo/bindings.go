package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
)

var (
	orderingParam = "ordering"
	populateParam = "populate"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=name,-created_at`; a leading "-" means descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func bindPopulate(ctx echo.Context) (catalog.Populate, error) {
	return catalog.ParsePopulate(ctx.QueryParam(populateParam))
}
