package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/feria/core"
)

var orderingParam = "ordering"

// Ordering binds `?ordering=name,-created_at`: a leading "-" sorts descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// IDsRequest binds repeated `?id=` query params.
type IDsRequest struct {
	IDs []string `query:"id"`
}
