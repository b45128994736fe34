package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/tenantdesk/apiserver/types"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func normalizePage(page types.Page) types.Page {
	if page.Offset < 0 {
		page.Offset = 0
	}
	if page.Limit < 1 {
		page.Limit = defaultListLimit
	}
	if page.Limit > maxListLimit {
		page.Limit = maxListLimit
	}
	return page
}

// count runs COUNT(1) over table restricted by where.
func count(ctx context.Context, q sqlx.QueryerContext, table string, where sq.And) (int, error) {
	query, args, err := psql.Select("COUNT(1)").From(table).Where(where).ToSql()
	if err != nil {
		return 0, err
	}
	var total int
	if err := sqlx.GetContext(ctx, q, &total, query, args...); err != nil {
		return 0, err
	}
	return total, nil
}
