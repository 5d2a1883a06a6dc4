package sqlmap

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gogf/gf/errors/gerror"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ayiyaha-hyd/sqlmap/internal/pool"
	"github.com/ayiyaha-hyd/sqlmap/internal/xmlconfig"
)

// An Environment pairs a transaction manager with a datasource: a pool
// plus the driver-specific ping query and databaseId needed to route
// `databaseIdProvider`-scoped statements.
type Environment struct {
	ID                 string
	DatabaseID         string
	TransactionManager string // "JDBC" (connection-managed) or "MANAGED" (external)

	product   string // driver's vendor product name, for databaseIdProvider
	isolation sql.IsolationLevel
	pool      *pool.Pool
}

// sqlOpener adapts database/sql's *sql.DB to pool.Opener.
type sqlOpener struct {
	db        *sql.DB
	pingQuery string
}

func (o *sqlOpener) Open(ctx context.Context) (*sql.Conn, error) {
	return o.db.Conn(ctx)
}

func (o *sqlOpener) Ping(ctx context.Context, conn *sql.Conn, query string) error {
	if query == "" {
		query = o.pingQuery
	}
	_, err := conn.ExecContext(ctx, query)
	return err
}

type driverProfile struct {
	driverName string
	product    string // vendor product name a databaseIdProvider keys on
	dsnBuilder func(props map[string]string) string
	pingQuery  string
	databaseID string
}

var driverProfiles = map[string]driverProfile{
	"mysql": {
		driverName: "mysql",
		product:    "MySQL",
		dsnBuilder: mysqlDSN,
		pingQuery:  "SELECT 1",
		databaseID: "mysql",
	},
	"postgres": {
		driverName: "postgres",
		product:    "PostgreSQL",
		dsnBuilder: postgresDSN,
		pingQuery:  "SELECT 1",
		databaseID: "postgresql",
	},
	"sqlite": {
		driverName: "sqlite",
		product:    "SQLite",
		dsnBuilder: sqliteDSN,
		pingQuery:  "SELECT 1",
		databaseID: "sqlite",
	},
}

func mysqlDSN(props map[string]string) string {
	if dsn := props["dataSource"]; dsn != "" {
		return dsn
	}
	user, pass := props["username"], props["password"]
	host := firstNonEmptyEnv(props["host"], "127.0.0.1")
	port := firstNonEmptyEnv(props["port"], "3306")
	name := props["database"]
	return user + ":" + pass + "@tcp(" + host + ":" + port + ")/" + name + "?parseTime=true"
}

func postgresDSN(props map[string]string) string {
	if dsn := props["dataSource"]; dsn != "" {
		return dsn
	}
	user, pass := props["username"], props["password"]
	host := firstNonEmptyEnv(props["host"], "127.0.0.1")
	port := firstNonEmptyEnv(props["port"], "5432")
	name := props["database"]
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func sqliteDSN(props map[string]string) string {
	return firstNonEmptyEnv(props["dataSource"], props["database"])
}

func firstNonEmptyEnv(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// newEnvironment builds one Environment from a parsed `<environment>` block,
// opening the *sql.DB lazily (database/sql itself defers the real
// connection until first use) and wiring it behind the pool.
func newEnvironment(def xmlconfig.EnvironmentDef) (*Environment, error) {
	profile, ok := driverProfiles[def.DataSourceType]
	if !ok {
		return nil, gerror.Newf("sqlmap: unknown dataSource type %q", def.DataSourceType)
	}

	dsn := profile.dsnBuilder(def.DataSourceProps)
	db, err := sql.Open(profile.driverName, dsn)
	if err != nil {
		return nil, gerror.Wrap(err, "sqlmap: open "+def.DataSourceType)
	}

	cfg := pool.Config{
		MaxActive:       intProp(def.DataSourceProps, "maxActive", 10),
		MaxIdle:         intProp(def.DataSourceProps, "maxIdle", 5),
		MaxCheckoutTime: durationProp(def.DataSourceProps, "maxCheckoutTime", 20*time.Second),
		WaitTime:        durationProp(def.DataSourceProps, "waitTime", 5*time.Second),
		MaxBadTolerance: intProp(def.DataSourceProps, "poolMaximumLocalBadConnectionTolerance", 3),
		PingQuery:       profile.pingQuery,
		PingEnabled:     def.DataSourceProps["poolPingEnabled"] == "true",
		PingIfIdleFor:   durationProp(def.DataSourceProps, "poolPingConnectionsNotUsedFor", time.Minute),
		URL:             dsn,
		User:            def.DataSourceProps["username"],
		Password:        def.DataSourceProps["password"],
	}

	p := pool.New(cfg, &sqlOpener{db: db, pingQuery: profile.pingQuery})
	return &Environment{
		ID:                 def.ID,
		DatabaseID:         profile.databaseID,
		TransactionManager: def.TransactionManager,
		product:            profile.product,
		isolation:          isolationProp(def.DataSourceProps),
		pool:               p,
	}, nil
}

// isolationProp maps the datasource's declared isolation level name onto
// database/sql's levels; absent or unrecognized names fall back to the
// driver default.
func isolationProp(props map[string]string) sql.IsolationLevel {
	switch props["defaultTransactionIsolationLevel"] {
	case "READ_UNCOMMITTED":
		return sql.LevelReadUncommitted
	case "READ_COMMITTED":
		return sql.LevelReadCommitted
	case "REPEATABLE_READ":
		return sql.LevelRepeatableRead
	case "SERIALIZABLE":
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

func intProp(props map[string]string, key string, fallback int) int {
	if v, ok := props[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func durationProp(props map[string]string, key string, fallback time.Duration) time.Duration {
	if v, ok := props[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}

// NewTransaction opens a transaction against this environment, connection-
// managed ("JDBC") or externally-managed ("MANAGED").
func (e *Environment) NewTransaction(autoCommit bool) pool.Transaction {
	if e.TransactionManager == "MANAGED" {
		return pool.NewExternalTransaction(e.pool)
	}
	return pool.NewManagedTransaction(e.pool, e.isolation, autoCommit)
}

// Close releases the environment's pool.
func (e *Environment) Close() error {
	return e.pool.Close()
}
