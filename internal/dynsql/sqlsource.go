package dynsql

import (
	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/ognl"
	"github.com/ayiyaha-hyd/sqlmap/internal/reflection"
)

// Source implements model.SqlSource by walking a compiled Node tree once
// per invocation, binding the given parameter object.
type Source struct {
	root    Node
	nav     *reflection.Navigator
	dynamic bool
}

// NewSource wraps root, detecting at construction time whether it ever
// needs per-call re-evaluation.
func NewSource(root Node, nav *reflection.Navigator) *Source {
	return &Source{root: root, nav: nav, dynamic: root.Dynamic()}
}

func (s *Source) Dynamic() bool { return s.dynamic }

func (s *Source) GetBoundSql(parameterObject any, databaseID string) (*model.BoundSql, error) {
	ctx := newContext(parameterObject)
	eval := ognl.NewEvaluator(navigatorAdapter{s.nav})
	if err := s.root.Apply(ctx, eval); err != nil {
		return nil, err
	}
	return &model.BoundSql{
		SQL:                  ctx.sql.String(),
		ParameterMappings:    ctx.mappings,
		ParameterObject:      parameterObject,
		AdditionalParameters: ctx.additional,
	}, nil
}

// navigatorAdapter bridges internal/reflection.Navigator's Get(root, path)
// to ognl.Navigator's interface (identical shape, different package).
type navigatorAdapter struct {
	nav *reflection.Navigator
}

func (a navigatorAdapter) Get(root any, path string) (any, bool) {
	return a.nav.Get(root, path)
}
