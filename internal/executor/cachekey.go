package executor

import (
	"github.com/ayiyaha-hyd/sqlmap/internal/cache"
	"github.com/ayiyaha-hyd/sqlmap/internal/model"
)

// BuildCacheKey assembles the composite cache key for one query execution:
// statement id, row bounds, rendered SQL, every bound value in parameter
// order, and the database id when one is configured.
func BuildCacheKey(ms *model.MappedStatement, bounds model.RowBounds, sqlText string, args []any, databaseID string) *cache.Key {
	components := make([]any, 0, 4+len(args)+1)
	components = append(components, ms.ID, bounds.Offset, bounds.Limit, sqlText)
	for _, a := range args {
		components = append(components, a)
	}
	if databaseID != "" {
		components = append(components, databaseID)
	}
	return cache.NewKey(components...)
}
