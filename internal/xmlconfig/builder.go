package xmlconfig

import (
	"strconv"
	"time"

	"github.com/gogf/gf/errors/gerror"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
)

// Settings holds the flattened `<settings>` block, converted to Go types.
type Settings struct {
	CacheEnabled             bool
	LazyLoadingEnabled       bool
	AggressiveLazyLoading    bool
	MultipleResultSetsEnabled bool
	UseColumnLabel           bool
	UseGeneratedKeys         bool
	AutoMappingBehavior      model.AutoMappingBehavior
	DefaultStatementTimeout  time.Duration
	DefaultFetchSize         int
	MapUnderscoreToCamelCase bool
	DefaultExecutorType      string
}

func defaultSettings() Settings {
	return Settings{
		CacheEnabled:              true,
		MultipleResultSetsEnabled: true,
		UseColumnLabel:            true,
		AutoMappingBehavior:       model.AutoMappingPartial,
		DefaultExecutorType:       "simple",
	}
}

// EnvironmentDef is one `<environment>` entry after property substitution.
type EnvironmentDef struct {
	ID                string
	TransactionManager string
	DataSourceType    string
	DataSourceProps   map[string]string
}

// PluginDef is one `<plugin>` entry: the interceptor's registered factory
// name and its `<property>` children as a name-to-value map (the order of
// the children is not kept; Result.Plugins keeps the plugins' own order).
type PluginDef struct {
	Name       string
	Properties map[string]string
}

// TypeHandlerDef is one `<typeHandler>` entry: the handler's registered
// factory name plus the javaType/jdbcType pair it applies to.
type TypeHandlerDef struct {
	JavaType string
	JdbcType string
	Handler  string
}

// Result is everything a configuration XML document yields once parsed:
// settings, type aliases/handlers to register, plugins, and environments
// to wire.
type Result struct {
	Properties         map[string]string
	Settings           Settings
	TypeAliases        map[string]string // alias -> fully-qualified type name
	TypeHandlers       []TypeHandlerDef
	Plugins            []PluginDef
	DefaultEnvironment string
	Environments       []EnvironmentDef
	DatabaseIDProvider map[string]string // vendor product name -> databaseId
	MapperResources    []string
	MapperURLs         []string
}

// ParseConfiguration parses a top-level `<configuration>` document. It
// applies `${}` property substitution to every attribute value using the
// document's own `<properties>` block merged over externalProps (external
// values win, matching MyBatis' own precedence).
func ParseConfiguration(data []byte, externalProps map[string]string) (*Result, error) {
	raw, err := parseConfiguration(data)
	if err != nil {
		return nil, gerror.Wrap(err, "xmlconfig: parse configuration")
	}

	props := map[string]string{}
	for _, p := range raw.Properties.Entries {
		props[p.Name] = p.Value
	}
	for k, v := range externalProps {
		props[k] = v
	}

	res := &Result{
		Properties:         props,
		Settings:           defaultSettings(),
		TypeAliases:        map[string]string{},
		DatabaseIDProvider: map[string]string{},
	}

	for _, s := range raw.Settings.Entries {
		if err := applySetting(&res.Settings, s.Name, substitute(s.Value, props)); err != nil {
			return nil, err
		}
	}

	for _, a := range raw.TypeAliases.Aliases {
		res.TypeAliases[a.Alias] = substitute(a.Type, props)
	}

	for _, th := range raw.TypeHandlers.Handlers {
		res.TypeHandlers = append(res.TypeHandlers, TypeHandlerDef{
			JavaType: substitute(th.JavaType, props),
			JdbcType: th.JdbcType,
			Handler:  th.Handler,
		})
	}

	for _, p := range raw.Plugins.Plugins {
		def := PluginDef{Name: p.Interceptor, Properties: map[string]string{}}
		for _, prop := range p.Properties {
			def.Properties[prop.Name] = substitute(prop.Value, props)
		}
		res.Plugins = append(res.Plugins, def)
	}

	res.DefaultEnvironment = raw.Environments.Default
	for _, e := range raw.Environments.Environments {
		dsProps := map[string]string{}
		for _, p := range e.DataSource.Properties {
			dsProps[p.Name] = substitute(p.Value, props)
		}
		res.Environments = append(res.Environments, EnvironmentDef{
			ID:                 e.ID,
			TransactionManager: e.TransactionMgr.Type,
			DataSourceType:     e.DataSource.Type,
			DataSourceProps:    dsProps,
		})
	}

	for _, p := range raw.DatabaseIDProvider.Properties {
		res.DatabaseIDProvider[p.Name] = substitute(p.Value, props)
	}

	for _, m := range raw.Mappers.Mappers {
		if m.Resource != "" {
			res.MapperResources = append(res.MapperResources, m.Resource)
		}
		if m.URL != "" {
			res.MapperURLs = append(res.MapperURLs, m.URL)
		}
	}

	return res, nil
}

// applySetting rejects unknown setting names: every `<setting>` key must
// correspond to a recognized configuration field.
func applySetting(s *Settings, name, value string) error {
	switch name {
	case "cacheEnabled":
		s.CacheEnabled = value == "true"
	case "lazyLoadingEnabled":
		s.LazyLoadingEnabled = value == "true"
	case "aggressiveLazyLoading":
		s.AggressiveLazyLoading = value == "true"
	case "multipleResultSetsEnabled":
		s.MultipleResultSetsEnabled = value == "true"
	case "useColumnLabel":
		s.UseColumnLabel = value == "true"
	case "useGeneratedKeys":
		s.UseGeneratedKeys = value == "true"
	case "mapUnderscoreToCamelCase":
		s.MapUnderscoreToCamelCase = value == "true"
	case "defaultExecutorType":
		s.DefaultExecutorType = value
	case "defaultStatementTimeout":
		if n, err := strconv.Atoi(value); err == nil {
			s.DefaultStatementTimeout = time.Duration(n) * time.Second
		}
	case "defaultFetchSize":
		if n, err := strconv.Atoi(value); err == nil {
			s.DefaultFetchSize = n
		}
	case "autoMappingBehavior":
		switch value {
		case "NONE":
			s.AutoMappingBehavior = model.AutoMappingNone
		case "FULL":
			s.AutoMappingBehavior = model.AutoMappingFull
		default:
			s.AutoMappingBehavior = model.AutoMappingPartial
		}
	default:
		return gerror.Newf("xmlconfig: unrecognized setting %q", name)
	}
	return nil
}

// unresolved records a registration that referenced a not-yet-seen
// resultMap/cache-ref/include by ID, to be retried once more documents have
// been parsed.
type unresolved struct {
	description string
	retry       func() error
}

// IncompleteQueue accumulates deferred registrations and drains them to a
// fixed point: each pass attempts every pending entry, removing those that
// now succeed, and stops either when nothing remains or a pass makes no
// progress (the remaining entries are a genuine unresolved-reference error).
type IncompleteQueue struct {
	pending []unresolved
}

func (q *IncompleteQueue) Defer(description string, retry func() error) {
	q.pending = append(q.pending, unresolved{description: description, retry: retry})
}

func (q *IncompleteQueue) Drain() error {
	for {
		if len(q.pending) == 0 {
			return nil
		}
		progressed := false
		var still []unresolved
		for _, u := range q.pending {
			if err := u.retry(); err != nil {
				still = append(still, u)
				continue
			}
			progressed = true
		}
		q.pending = still
		if !progressed {
			break
		}
	}
	descs := make([]string, 0, len(q.pending))
	for _, u := range q.pending {
		descs = append(descs, u.description)
	}
	return gerror.Newf("xmlconfig: unresolved references after fixed-point drain: %v", descs)
}
