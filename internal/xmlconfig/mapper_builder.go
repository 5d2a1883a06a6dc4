package xmlconfig

import (
	"reflect"
	"strconv"
	"time"

	"github.com/gogf/gf/errors/gerror"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
)

// TypeResolver resolves a javaType/ofType/parameterType attribute (an alias
// or a Go-reflectable name) to a concrete reflect.Type. Returns nil, false
// when the name is unknown; callers keep the field untyped in that case and
// let the type-handler registry fall back at execution time.
type TypeResolver func(name string) (reflect.Type, bool)

// SqlFragment is a named `<sql>` fragment available to `<include>` nodes,
// kept as raw XML text so dynsql compiles it the same way it compiles a
// statement body.
type SqlFragment struct {
	ID    string
	Inner string
}

// MapperDoc is one parsed `<mapper>` document, resolved as far as
// xmlconfig's own knowledge goes; ResultMaps with NestedResultMapID
// references into other namespaces are left for the caller (the
// configuration aggregate) to resolve via IncompleteQueue, since xmlconfig
// has no cross-document registry of its own.
type MapperDoc struct {
	Namespace     string
	CacheRef      string
	Cache         *CacheDef
	ParameterMaps map[string]*model.ParameterMap
	ResultMaps    map[string]*model.ResultMap
	SqlFragments  map[string]*SqlFragment
	Statements    map[string]*RawStatement
}

// CacheDef mirrors a `<cache>` element's attributes, unconverted to the
// internal/cache.Config it eventually feeds (that conversion needs the
// alias registry to resolve Type, which xmlconfig does not own).
type CacheDef struct {
	Type          string
	Eviction      string
	FlushInterval time.Duration
	Size          int
	ReadOnly      bool
	Blocking      bool
	Properties    map[string]string
}

// RawStatement is a select/insert/update/delete element whose body has not
// yet been compiled into a dynsql node tree (xmlconfig does not depend on
// dynsql to avoid a layering cycle between resultMap resolution and SQL
// compilation).
type RawStatement struct {
	ID               string
	Kind             model.StatementKind
	ParameterType    string
	ParameterMap     string
	ResultType       string
	ResultMap        string
	StatementType    string
	FetchSize        int
	Timeout          time.Duration
	UseCache         bool
	FlushCache       bool
	ResultOrdered    bool
	DatabaseID       string
	KeyProperty      []string
	KeyColumn        []string
	UseGeneratedKeys bool
	SelectKey        *RawSelectKey
	Inner            string
}

// RawSelectKey is an insert/update statement's `<selectKey>` child, compiled
// by the caller into its own MappedStatement (xmlconfig has no reference to
// dynsql, so the body stays raw XML here too).
type RawSelectKey struct {
	KeyProperty []string
	KeyColumn   []string
	ResultType  string
	Before      bool
	Inner       string
}

// ParseMapper parses a mapper XML document's parameterMap/resultMap/sql/
// statement elements. Every resultMap `extends` is deferred to queue and
// resolved when it drains, against this document's own resultMaps only; a
// parent in another namespace stays unresolved and is reported by Drain.
// resolve looks up javaType/ofType names against the
// alias registry; pass nil to skip type resolution entirely. databaseID is
// the active environment's database id: statement variants declaring a
// different databaseId are skipped, and a matching variant displaces the
// generic one sharing its id.
func ParseMapper(data []byte, props map[string]string, resolve TypeResolver, queue *IncompleteQueue, databaseID string) (*MapperDoc, error) {
	raw, err := parseMapperDoc(data)
	if err != nil {
		return nil, gerror.Wrap(err, "xmlconfig: parse mapper")
	}
	if resolve == nil {
		resolve = func(string) (reflect.Type, bool) { return nil, false }
	}

	doc := &MapperDoc{
		Namespace:     raw.Namespace,
		ParameterMaps: map[string]*model.ParameterMap{},
		ResultMaps:    map[string]*model.ResultMap{},
		SqlFragments:  map[string]*SqlFragment{},
		Statements:    map[string]*RawStatement{},
	}

	if raw.CacheRef != nil {
		doc.CacheRef = raw.CacheRef.Namespace
	}
	if raw.Cache != nil {
		doc.Cache = buildCacheDef(raw.Cache, props)
	}

	for _, pm := range raw.ParameterMap {
		doc.ParameterMaps[qualify(doc.Namespace, pm.ID)] = buildParameterMap(doc.Namespace, pm, resolve)
	}

	for _, rm := range raw.ResultMap {
		id := qualify(doc.Namespace, rm.ID)
		resultMap, deferredExtends := buildResultMap(doc.Namespace, rm, resolve)
		doc.ResultMaps[id] = resultMap
		if deferredExtends != "" {
			parentID := deferredExtends
			queue.Defer("resultMap "+id+" extends "+parentID, func() error {
				parent, ok := doc.ResultMaps[parentID]
				if !ok {
					return gerror.Newf("resultMap %s not found", parentID)
				}
				mergeExtends(resultMap, parent)
				return nil
			})
		}
	}

	for _, sf := range raw.Sql {
		doc.SqlFragments[qualify(doc.Namespace, sf.ID)] = &SqlFragment{ID: sf.ID, Inner: sf.Inner}
	}

	register := func(kind model.StatementKind, stmts []statementXML) {
		for _, s := range stmts {
			id := qualify(doc.Namespace, s.ID)
			raw := buildRawStatement(doc.Namespace, kind, s)
			if raw.DatabaseID != "" && databaseID != "" && raw.DatabaseID != databaseID {
				continue
			}
			if existing, ok := doc.Statements[id]; ok && existing.DatabaseID != "" && raw.DatabaseID == "" {
				continue
			}
			doc.Statements[id] = raw
		}
	}
	register(model.StatementSelect, raw.Select)
	register(model.StatementInsert, raw.Insert)
	register(model.StatementUpdate, raw.Update)
	register(model.StatementDelete, raw.Delete)

	return doc, nil
}

func qualify(namespace, id string) string {
	if id == "" {
		return namespace
	}
	return namespace + "." + id
}

func buildCacheDef(raw *cacheXML, props map[string]string) *CacheDef {
	def := &CacheDef{
		Type:     firstNonEmpty(raw.Type, "PERPETUAL"),
		Eviction: firstNonEmpty(raw.Eviction, "LRU"),
		Size:     1024,
		// Read-write unless declared otherwise; a read-write cache
		// serializes stored values so callers get copies.
		ReadOnly:   raw.ReadOnly == "true",
		Properties: map[string]string{},
	}
	if raw.Blocking == "true" {
		def.Blocking = true
	}
	if raw.Size != "" {
		if n, err := strconv.Atoi(substitute(raw.Size, props)); err == nil {
			def.Size = n
		}
	}
	if raw.FlushInterval != "" {
		if n, err := strconv.Atoi(substitute(raw.FlushInterval, props)); err == nil {
			def.FlushInterval = time.Duration(n) * time.Millisecond
		}
	}
	for _, p := range raw.Properties {
		def.Properties[p.Name] = substitute(p.Value, props)
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func buildParameterMap(namespace string, pm parameterMapXML, resolve TypeResolver) *model.ParameterMap {
	out := &model.ParameterMap{ID: qualify(namespace, pm.ID)}
	if t, ok := resolve(pm.Type); ok {
		out.Type = t
	}
	for _, e := range pm.Entries {
		pmg := &model.ParameterMapping{
			Property:        e.Property,
			JdbcType:        e.JdbcType,
			Mode:            parseParameterMode(e.Mode),
			TypeHandlerName: e.TypeHandler,
		}
		if t, ok := resolve(e.JavaType); ok {
			pmg.JavaType = t
		}
		out.ParameterMappings = append(out.ParameterMappings, pmg)
	}
	return out
}

func parseParameterMode(mode string) model.ParameterMode {
	switch mode {
	case "OUT":
		return model.ParamOut
	case "INOUT":
		return model.ParamInOut
	default:
		return model.ParamIn
	}
}

func buildResultMap(namespace string, rm resultMapXML, resolve TypeResolver) (*model.ResultMap, string) {
	out := &model.ResultMap{
		ID: qualify(namespace, rm.ID),
	}
	if t, ok := resolve(rm.Type); ok {
		out.Type = t
	}

	appendEntries := func(entries []resultEntryXML, flags ...model.ResultFlag) {
		for _, e := range entries {
			mapping := &model.ResultMapping{
				Property:        e.Property,
				Column:          e.Column,
				JdbcType:        e.JdbcType,
				TypeHandlerName: e.TypeHandler,
				Flags:           flags,
			}
			if t, ok := resolve(e.JavaType); ok {
				mapping.JavaType = t
			}
			out.Mappings = append(out.Mappings, mapping)
		}
	}

	if rm.Constructor != nil {
		appendEntries(rm.Constructor.IDArg, model.FlagID, model.FlagConstructorArg)
		appendEntries(rm.Constructor.Arg, model.FlagConstructorArg)
	}
	appendEntries(rm.ID_, model.FlagID)
	appendEntries(rm.Result)

	for _, a := range rm.Association {
		out.HasNestedResultMaps = out.HasNestedResultMaps || a.ResultMap != ""
		out.HasNestedQueries = out.HasNestedQueries || a.Select != ""
		mapping := &model.ResultMapping{
			Property:          a.Property,
			Column:            a.Column,
			NestedResultMapID: qualifyIfLocal(namespace, a.ResultMap),
			NestedSelectID:    qualifyIfLocal(namespace, a.Select),
			ColumnPrefix:      a.ColumnPrefix,
		}
		if t, ok := resolve(a.JavaType); ok {
			mapping.JavaType = t
		}
		out.Mappings = append(out.Mappings, mapping)
	}
	for _, c := range rm.Collection {
		out.HasNestedResultMaps = out.HasNestedResultMaps || c.ResultMap != ""
		out.HasNestedQueries = out.HasNestedQueries || c.Select != ""
		mapping := &model.ResultMapping{
			Property:          c.Property,
			Column:            c.Column,
			NestedResultMapID: qualifyIfLocal(namespace, c.ResultMap),
			NestedSelectID:    qualifyIfLocal(namespace, c.Select),
			IsCollection:      true,
			ColumnPrefix:      c.ColumnPrefix,
		}
		if t, ok := resolve(c.OfType); ok {
			mapping.JavaType = t
		}
		out.Mappings = append(out.Mappings, mapping)
	}

	for _, m := range out.Mappings {
		if m.HasFlag(model.FlagID) {
			out.IDMappings = append(out.IDMappings, m)
		}
		if m.HasFlag(model.FlagConstructorArg) {
			out.ConstructorMappings = append(out.ConstructorMappings, m)
		}
	}

	if rm.Discriminator != nil {
		disc := &model.Discriminator{
			Column:   rm.Discriminator.Column,
			JdbcType: rm.Discriminator.JdbcType,
			CaseMap:  map[string]string{},
		}
		if t, ok := resolve(rm.Discriminator.JavaType); ok {
			disc.JavaType = t
		}
		for _, c := range rm.Discriminator.Case {
			target := c.ResultMap
			if target == "" {
				target = c.ResultType
			}
			disc.CaseMap[c.Value] = qualifyIfLocal(namespace, target)
		}
		out.Discriminator = disc
	}

	return out, qualifyIfLocal(namespace, rm.Extends)
}

func qualifyIfLocal(namespace, id string) string {
	if id == "" {
		return ""
	}
	if containsDot(id) {
		return id
	}
	return qualify(namespace, id)
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func mergeExtends(child, parent *model.ResultMap) {
	seen := map[string]bool{}
	for _, m := range child.Mappings {
		seen[m.Property] = true
	}
	for _, m := range parent.Mappings {
		if !seen[m.Property] {
			child.Mappings = append(child.Mappings, m)
		}
	}
	if child.Discriminator == nil {
		child.Discriminator = parent.Discriminator
	}
}

func buildRawStatement(namespace string, kind model.StatementKind, s statementXML) *RawStatement {
	out := &RawStatement{
		ID:            qualify(namespace, s.ID),
		Kind:          kind,
		ParameterType: s.ParameterType,
		ParameterMap:  qualifyIfLocal(namespace, s.ParameterMap),
		ResultType:    s.ResultType,
		ResultMap:     qualifyIfLocal(namespace, s.ResultMap),
		StatementType: firstNonEmpty(s.StatementType, "PREPARED"),
		UseCache:      kind == model.StatementSelect && s.UseCache != "false",
		FlushCache:    kind != model.StatementSelect && s.FlushCache != "false",
		ResultOrdered: s.ResultOrdered == "true",
		DatabaseID:    s.DatabaseID,
		Inner:         s.Inner,
	}
	if s.FetchSize != "" {
		if n, err := strconv.Atoi(s.FetchSize); err == nil {
			out.FetchSize = n
		}
	}
	if s.Timeout != "" {
		if n, err := strconv.Atoi(s.Timeout); err == nil {
			out.Timeout = time.Duration(n) * time.Second
		}
	}
	if s.KeyProperty != "" {
		out.KeyProperty = splitCsv(s.KeyProperty)
	}
	if s.KeyColumn != "" {
		out.KeyColumn = splitCsv(s.KeyColumn)
	}
	out.UseGeneratedKeys = s.UseGeneratedKeys == "true"
	if s.SelectKey != nil {
		out.SelectKey = &RawSelectKey{
			KeyProperty: splitCsv(s.SelectKey.KeyProperty),
			KeyColumn:   splitCsv(s.SelectKey.KeyColumn),
			ResultType:  s.SelectKey.ResultType,
			Before:      s.SelectKey.Order != "AFTER",
			Inner:       s.SelectKey.Inner,
		}
	}
	return out
}

func splitCsv(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			part := trimSpace(s[start:i])
			if part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
