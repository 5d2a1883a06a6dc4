// Package sqlmap is a MyBatis-style SQL mapping runtime: externally
// configured statements, dynamic SQL, result mapping, and a pluggable
// second-level cache sitting on top of database/sql.
package sqlmap

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gogf/gf/errors/gerror"
	"github.com/gogf/gf/os/glog"

	"github.com/ayiyaha-hyd/sqlmap/internal/cache"
	"github.com/ayiyaha-hyd/sqlmap/internal/dynsql"
	"github.com/ayiyaha-hyd/sqlmap/internal/executor"
	"github.com/ayiyaha-hyd/sqlmap/internal/model"
	"github.com/ayiyaha-hyd/sqlmap/internal/reflection"
	"github.com/ayiyaha-hyd/sqlmap/internal/xmlconfig"
)

var logger = glog.New()

// Configuration is the aggregate root every other piece of a running
// sqlmap instance is resolved through: statements, result/parameter maps,
// caches, the active environment, and the shared registries. Built once
// from XML documents and consulted concurrently thereafter; assembly and
// lookup never overlap.
type Configuration struct {
	mu sync.RWMutex

	settings xmlconfig.Settings

	meta        *reflection.MetaCache
	nav         *reflection.Navigator
	aliases     *reflection.AliasRegistry
	typeHandlers *reflection.Registry

	statements map[string]*model.MappedStatement
	resultMaps map[string]*model.ResultMap
	caches     map[string]cache.Cache
	sqlFragments map[string]string

	environments map[string]*Environment
	defaultEnv   string
	databaseIDs  map[string]string // vendor product name -> databaseId

	interceptors         *executor.Chain
	pluginFactories      map[string]PluginFactory
	typeHandlerFactories map[string]func() reflection.TypeHandler
	objectFactory        reflection.ObjectFactory

	pending *xmlconfig.IncompleteQueue
}

// PluginFactory instantiates one `<plugin>` interceptor from its declared
// `<property>` children. Factories are registered by name before the
// configuration document is loaded.
type PluginFactory func(props map[string]string) executor.Interceptor

// NewConfiguration builds an empty Configuration with the default type
// alias and type handler registrations installed, ready to load XML
// documents against.
func NewConfiguration() *Configuration {
	meta := reflection.NewMetaCache()
	typeHandlers := reflection.NewRegistry()
	reflection.RegisterDefaults(typeHandlers)

	return &Configuration{
		settings:     xmlconfig.Settings{CacheEnabled: true, AutoMappingBehavior: model.AutoMappingPartial},
		meta:         meta,
		nav:          reflection.NewNavigator(meta),
		aliases:      reflection.NewAliasRegistry(),
		typeHandlers: typeHandlers,
		statements:   map[string]*model.MappedStatement{},
		resultMaps:   map[string]*model.ResultMap{},
		caches:       map[string]cache.Cache{},
		sqlFragments: map[string]string{},
		environments:    map[string]*Environment{},
		databaseIDs:     map[string]string{},
		interceptors:         executor.NewChain(),
		pluginFactories:      map[string]PluginFactory{},
		typeHandlerFactories: map[string]func() reflection.TypeHandler{},
		objectFactory:        reflection.DefaultObjectFactory{},
		pending:              &xmlconfig.IncompleteQueue{},
	}
}

// RegisterTypeHandlerFactory binds a factory to the name a
// `<typeHandler handler="...">` element refers to, the same way plugin
// factories back `<plugin>` entries.
func (c *Configuration) RegisterTypeHandlerFactory(name string, factory func() reflection.TypeHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typeHandlerFactories[name] = factory
}

// RegisterPlugin binds a factory to the name a `<plugin interceptor="...">`
// element refers to. Must be called before LoadConfigurationXML.
func (c *Configuration) RegisterPlugin(name string, factory PluginFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pluginFactories[name] = factory
}

// SetObjectFactory swaps the result-object constructor (the
// `<objectFactory>` plugin point).
func (c *Configuration) SetObjectFactory(f reflection.ObjectFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f != nil {
		c.objectFactory = f
	}
}

// SetObjectWrapperFactory swaps the property-access wrapper (the
// `<objectWrapperFactory>` plugin point).
func (c *Configuration) SetObjectWrapperFactory(f reflection.ObjectWrapperFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f != nil {
		c.nav = f.Wrap(c.meta)
	}
}

// SetReflectorFactory swaps the type-metadata cache (the
// `<reflectorFactory>` plugin point), rebuilding the navigator over it.
func (c *Configuration) SetReflectorFactory(f reflection.ReflectorFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f != nil {
		c.meta = f.Reflector()
		c.nav = reflection.NewNavigator(c.meta)
	}
}

// Use registers a plugin (executor interceptor) in registration order,
// matching `<plugins>`'s wrapping rule: the first registered
// plugin is the outermost.
func (c *Configuration) Use(i executor.Interceptor) {
	c.interceptors.Use(i)
}

// RegisterTypeHandler exposes the shared handler registry to callers that
// need to register a handler programmatically rather than via
// `<typeHandlers>`.
func (c *Configuration) RegisterTypeHandler(javaType reflect.Type, jdbcType string, handler reflection.TypeHandler) {
	c.typeHandlers.Register(javaType, jdbcType, handler)
}

// LoadConfigurationXML parses a top-level `<configuration>` document,
// registering its settings, type aliases, type handlers, and environments.
// externalProps win over the document's own `<properties>` block, matching
// MyBatis' own precedence.
func (c *Configuration) LoadConfigurationXML(data []byte, externalProps map[string]string) error {
	res, err := xmlconfig.ParseConfiguration(data, externalProps)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings = res.Settings
	for alias, typeName := range res.TypeAliases {
		if t, ok := c.aliases.Resolve(typeName); ok {
			if err := c.aliases.Register(alias, t); err != nil {
				return err
			}
		}
	}
	for driverType, dbID := range res.DatabaseIDProvider {
		c.databaseIDs[driverType] = dbID
	}
	for _, p := range res.Plugins {
		factory, ok := c.pluginFactories[p.Name]
		if !ok {
			return gerror.Newf("sqlmap: no plugin factory registered for %q", p.Name)
		}
		c.interceptors.Use(factory(p.Properties))
	}
	for _, th := range res.TypeHandlers {
		factory, ok := c.typeHandlerFactories[th.Handler]
		if !ok {
			return gerror.Newf("sqlmap: no type handler factory registered for %q", th.Handler)
		}
		t, ok := c.aliases.Resolve(th.JavaType)
		if !ok {
			return gerror.Newf("sqlmap: unknown javaType %q for type handler %q", th.JavaType, th.Handler)
		}
		c.typeHandlers.Register(t, th.JdbcType, factory())
	}
	for _, e := range res.Environments {
		env, err := newEnvironment(e)
		if err != nil {
			return gerror.Wrap(err, "sqlmap: build environment "+e.ID)
		}
		// A databaseIdProvider entry matching the driver's product name
		// overrides the profile's default databaseId.
		for vendor, dbID := range c.databaseIDs {
			if strings.EqualFold(vendor, env.product) {
				env.DatabaseID = dbID
			}
		}
		c.environments[e.ID] = env
	}
	if res.DefaultEnvironment != "" {
		c.defaultEnv = res.DefaultEnvironment
	}
	return nil
}

// activeDatabaseID is the databaseId of the default environment, used to
// filter databaseId-discriminated statement variants at registration time.
func (c *Configuration) activeDatabaseID() string {
	if env, ok := c.environments[c.defaultEnv]; ok {
		return env.DatabaseID
	}
	return ""
}

// LoadMapperXML parses one `<mapper>` document and registers its
// resultMaps, sql fragments, cache, and statements; its parameterMaps are
// not registered, only attached to statements of the same document.
// `cache-ref` and statement resultMap references are deferred to Finish
// via the shared IncompleteQueue, so documents may be loaded in any order
// for those. `extends` is resolved within the declaring document only.
func (c *Configuration) LoadMapperXML(data []byte) error {
	doc, err := xmlconfig.ParseMapper(data, nil, c.resolveTypeName, c.pending, c.activeDatabaseID())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, rm := range doc.ResultMaps {
		c.resultMaps[id] = rm
	}
	for id, sf := range doc.SqlFragments {
		c.sqlFragments[id] = sf.Inner
	}

	if doc.Cache != nil {
		c.caches[doc.Namespace] = c.buildCache(doc.Namespace, doc.Cache)
	}
	if doc.CacheRef != "" {
		namespace, cacheRef := doc.Namespace, doc.CacheRef
		c.pending.Defer("cache-ref "+namespace+" -> "+cacheRef, func() error {
			shared, ok := c.caches[cacheRef]
			if !ok {
				return gerror.Newf("cache-ref target %s not found", cacheRef)
			}
			c.caches[namespace] = shared
			return nil
		})
	}

	resolveFragment := func(refid string) (string, bool) {
		if sf, ok := c.sqlFragments[refid]; ok {
			return sf, true
		}
		if sf, ok := c.sqlFragments[doc.Namespace+"."+refid]; ok {
			return sf, true
		}
		return "", false
	}

	dbID := c.activeDatabaseID()
	for id, raw := range doc.Statements {
		// databaseId discrimination: a variant for another database is
		// skipped; a database-specific variant beats the generic one and
		// is never displaced by it.
		if raw.DatabaseID != "" && dbID != "" && raw.DatabaseID != dbID {
			continue
		}
		if existing, ok := c.statements[id]; ok && existing.DatabaseID != "" && raw.DatabaseID == "" {
			continue
		}
		ms, err := c.buildStatement(doc, id, raw, resolveFragment)
		if err != nil {
			return gerror.Wrap(err, "sqlmap: build statement "+id)
		}
		c.statements[id] = ms
	}

	return nil
}

// Finish drains deferred cross-document references (extends, cache-ref,
// nested resultMaps) to a fixed point. Call once after all configuration
// and mapper documents are loaded.
func (c *Configuration) Finish() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Drain()
}

func (c *Configuration) resolveTypeName(name string) (reflect.Type, bool) {
	return c.aliases.Resolve(name)
}

func (c *Configuration) buildCache(namespace string, def *xmlconfig.CacheDef) cache.Cache {
	cfg := cache.Config{
		ID:            namespace,
		Size:          def.Size,
		FlushInterval: def.FlushInterval,
		Blocking:      def.Blocking,
		// A read-write cache hands out copies, so stored entries round-trip
		// through serialization; readOnly="true" shares instances directly.
		Serialize: !def.ReadOnly,
		Logging:   true,
	}
	switch def.Eviction {
	case "FIFO":
		cfg.Eviction = cache.EvictionFifo
	case "SOFT":
		cfg.Eviction = cache.EvictionSoft
	case "WEAK":
		cfg.Eviction = cache.EvictionWeak
		cfg.OnWeakWarn = func() { logger.Warning("sqlmap: WEAK cache on " + namespace + " is a no-op fallback") }
	default:
		cfg.Eviction = cache.EvictionLru
	}
	return cache.Build(cfg)
}

func (c *Configuration) buildStatement(doc *xmlconfig.MapperDoc, id string, raw *xmlconfig.RawStatement, resolveFragment dynsql.FragmentResolver) (*model.MappedStatement, error) {
	root, err := dynsql.Compile(raw.Inner, resolveFragment)
	if err != nil {
		return nil, err
	}
	source := dynsql.NewSource(root, c.nav)

	ms := &model.MappedStatement{
		ID:             id,
		Namespace:      doc.Namespace,
		Kind:           raw.Kind,
		SqlSource:      source,
		FetchSize:      raw.FetchSize,
		Timeout:        raw.Timeout,
		ResultOrdered:  raw.ResultOrdered,
		FlushOnExecute: raw.FlushCache,
		UseCache:       raw.UseCache && c.settings.CacheEnabled,
		DatabaseID:     raw.DatabaseID,
		KeyProperties:  raw.KeyProperty,
		KeyColumns:     raw.KeyColumn,
	}
	if raw.ParameterMap != "" {
		ms.ParameterMap = doc.ParameterMaps[raw.ParameterMap]
	}
	if raw.ResultMap != "" {
		for _, rmID := range splitResultMapRefs(raw.ResultMap) {
			resultMapID := rmID
			c.pending.Defer("statement "+id+" resultMap "+resultMapID, func() error {
				rm, ok := c.resultMaps[resultMapID]
				if !ok {
					return gerror.Newf("resultMap %s not found", resultMapID)
				}
				ms.ResultMaps = append(ms.ResultMaps, rm)
				return nil
			})
		}
	} else if raw.ResultType != "" {
		if t, ok := c.aliases.Resolve(raw.ResultType); ok {
			ms.ResultMaps = []*model.ResultMap{{ID: id + "-inline", Type: t, AutoMapping: &c.settings.AutoMappingBehavior}}
		}
	}

	switch {
	case raw.SelectKey != nil:
		ms.KeyGenerator = model.KeyGeneratorSelectKey
		ms.SelectKeyBefore = raw.SelectKey.Before
		ms.KeyProperties = raw.SelectKey.KeyProperty
		ms.KeyColumns = raw.SelectKey.KeyColumn
		skRoot, err := dynsql.Compile(raw.SelectKey.Inner, resolveFragment)
		if err != nil {
			return nil, gerror.Wrap(err, "sqlmap: compile selectKey for "+id)
		}
		skStmt := &model.MappedStatement{
			ID:        id + "!selectKey",
			Namespace: doc.Namespace,
			Kind:      model.StatementSelect,
			SqlSource: dynsql.NewSource(skRoot, c.nav),
		}
		if t, ok := c.aliases.Resolve(raw.SelectKey.ResultType); ok {
			skStmt.ResultMaps = []*model.ResultMap{{ID: skStmt.ID + "-inline", Type: t, AutoMapping: &c.settings.AutoMappingBehavior}}
		}
		c.statements[skStmt.ID] = skStmt
		ms.SelectKeyStmt = skStmt
	case raw.UseGeneratedKeys:
		ms.KeyGenerator = model.KeyGeneratorDriver
	default:
		ms.KeyGenerator = model.KeyGeneratorNone
	}

	return ms, nil
}

func splitResultMapRefs(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// GetMappedStatement resolves a registered statement by its fully
// qualified id.
func (c *Configuration) GetMappedStatement(id string) (*model.MappedStatement, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ms, ok := c.statements[id]
	return ms, ok
}

// Environment selects env by id, or the configured default when id is "".
func (c *Configuration) Environment(id string) (*Environment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id == "" {
		id = c.defaultEnv
	}
	env, ok := c.environments[id]
	return env, ok
}
