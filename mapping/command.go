package mapping

import "github.com/ayiyaha-hyd/sqlmap/internal/model"

// SqlCommand pairs a statement's fully-qualified id with the kind of
// operation it performs, resolved once per mapper method and cached.
type SqlCommand struct {
	Name string
	Kind model.StatementKind
}

func sqlCommandFor(ms *model.MappedStatement) SqlCommand {
	return SqlCommand{Name: ms.ID, Kind: ms.Kind}
}
