package xmlconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayiyaha-hyd/sqlmap/internal/model"
)

func TestSubstitutePlaceholders(t *testing.T) {
	props := map[string]string{"table": "products", "host": "db1"}

	assert.Equal(t, "select * from products", substitute("select * from ${table}", props))
	assert.Equal(t, "db1:3306", substitute("${host}:3306", props))
	// Missing name with a default falls back to the literal default.
	assert.Equal(t, "default_schema", substitute("${schema:default_schema}", props))
	// Present name wins over the default.
	assert.Equal(t, "products", substitute("${table:fallback}", props))
	// Missing name without a default is left untouched.
	assert.Equal(t, "${unknown}", substitute("${unknown}", props))
}

const configXML = `
<configuration>
  <properties>
    <property name="db.user" value="app"/>
    <property name="db.name" value="shop"/>
  </properties>
  <settings>
    <setting name="cacheEnabled" value="true"/>
    <setting name="mapUnderscoreToCamelCase" value="true"/>
    <setting name="defaultExecutorType" value="reuse"/>
    <setting name="defaultStatementTimeout" value="25"/>
    <setting name="autoMappingBehavior" value="FULL"/>
  </settings>
  <environments default="development">
    <environment id="development">
      <transactionManager type="JDBC"/>
      <dataSource type="mysql">
        <property name="username" value="${db.user}"/>
        <property name="database" value="${db.name}"/>
      </dataSource>
    </environment>
    <environment id="production">
      <transactionManager type="MANAGED"/>
      <dataSource type="postgres">
        <property name="username" value="${db.user}"/>
      </dataSource>
    </environment>
  </environments>
  <databaseIdProvider type="DB_VENDOR">
    <property name="MySQL" value="mysql"/>
    <property name="PostgreSQL" value="postgresql"/>
  </databaseIdProvider>
  <mappers>
    <mapper resource="mappers/user.xml"/>
    <mapper url="file:///etc/mappers/order.xml"/>
  </mappers>
</configuration>`

func TestParseConfiguration(t *testing.T) {
	res, err := ParseConfiguration([]byte(configXML), nil)
	require.NoError(t, err)

	assert.True(t, res.Settings.CacheEnabled)
	assert.True(t, res.Settings.MapUnderscoreToCamelCase)
	assert.Equal(t, "reuse", res.Settings.DefaultExecutorType)
	assert.Equal(t, 25*time.Second, res.Settings.DefaultStatementTimeout)
	assert.Equal(t, model.AutoMappingFull, res.Settings.AutoMappingBehavior)

	assert.Equal(t, "development", res.DefaultEnvironment)
	require.Len(t, res.Environments, 2)
	assert.Equal(t, "JDBC", res.Environments[0].TransactionManager)
	assert.Equal(t, "app", res.Environments[0].DataSourceProps["username"])
	assert.Equal(t, "shop", res.Environments[0].DataSourceProps["database"])

	assert.Equal(t, "mysql", res.DatabaseIDProvider["MySQL"])
	assert.Equal(t, []string{"mappers/user.xml"}, res.MapperResources)
	assert.Equal(t, []string{"file:///etc/mappers/order.xml"}, res.MapperURLs)
}

func TestExternalPropsOverrideDocumentProps(t *testing.T) {
	res, err := ParseConfiguration([]byte(configXML), map[string]string{"db.user": "override"})
	require.NoError(t, err)
	assert.Equal(t, "override", res.Environments[0].DataSourceProps["username"])
}

const mapperTestXML = `
<mapper namespace="shop.UserMapper">
  <cache eviction="FIFO" flushInterval="60000" size="512" blocking="true"/>
  <sql id="columns">id, name, age</sql>
  <resultMap id="userMap" type="map">
    <id property="ID" column="id"/>
    <result property="Name" column="name"/>
  </resultMap>
  <resultMap id="adminMap" type="map" extends="userMap">
    <result property="Role" column="role"/>
  </resultMap>
  <select id="selectById" resultMap="userMap" useCache="true">
    select <include refid="columns"/> from user where id = #{id}
  </select>
  <insert id="insertUser" keyProperty="ID" useGeneratedKeys="true">
    insert into user (name, age) values (#{name}, #{age})
  </insert>
  <update id="touch" flushCache="true">update user set name = name</update>
  <delete id="deleteById">delete from user where id = #{id}</delete>
</mapper>`

func TestParseMapperDocument(t *testing.T) {
	queue := &IncompleteQueue{}
	doc, err := ParseMapper([]byte(mapperTestXML), nil, nil, queue, "")
	require.NoError(t, err)
	require.NoError(t, queue.Drain())

	assert.Equal(t, "shop.UserMapper", doc.Namespace)

	require.NotNil(t, doc.Cache)
	assert.Equal(t, "FIFO", doc.Cache.Eviction)
	assert.Equal(t, 512, doc.Cache.Size)
	assert.Equal(t, time.Minute, doc.Cache.FlushInterval)
	assert.True(t, doc.Cache.Blocking)

	assert.Contains(t, doc.SqlFragments, "shop.UserMapper.columns")

	sel, ok := doc.Statements["shop.UserMapper.selectById"]
	require.True(t, ok)
	assert.Equal(t, model.StatementSelect, sel.Kind)
	assert.True(t, sel.UseCache)
	assert.Equal(t, "shop.UserMapper.userMap", sel.ResultMap)

	ins := doc.Statements["shop.UserMapper.insertUser"]
	require.NotNil(t, ins)
	assert.True(t, ins.UseGeneratedKeys)
	assert.Equal(t, []string{"ID"}, ins.KeyProperty)

	upd := doc.Statements["shop.UserMapper.touch"]
	require.NotNil(t, upd)
	assert.True(t, upd.FlushCache)

	del := doc.Statements["shop.UserMapper.deleteById"]
	require.NotNil(t, del)
	assert.Equal(t, model.StatementDelete, del.Kind)
}

func TestResultMapExtendsMergesParentMappings(t *testing.T) {
	queue := &IncompleteQueue{}
	doc, err := ParseMapper([]byte(mapperTestXML), nil, nil, queue, "")
	require.NoError(t, err)
	require.NoError(t, queue.Drain())

	admin := doc.ResultMaps["shop.UserMapper.adminMap"]
	require.NotNil(t, admin)

	props := map[string]bool{}
	for _, m := range admin.Mappings {
		props[m.Property] = true
	}
	assert.True(t, props["Role"])
	assert.True(t, props["ID"], "inherited from userMap")
	assert.True(t, props["Name"], "inherited from userMap")
}

func TestIncompleteQueueDrainsToFixedPoint(t *testing.T) {
	q := &IncompleteQueue{}
	registered := map[string]bool{}

	// b depends on a, which is only registered by draining a's own entry:
	// the first pass resolves a, the second resolves b.
	q.Defer("register b", func() error {
		if !registered["a"] {
			return assert.AnError
		}
		registered["b"] = true
		return nil
	})
	q.Defer("register a", func() error {
		registered["a"] = true
		return nil
	})

	require.NoError(t, q.Drain())
	assert.True(t, registered["b"])
}

func TestIncompleteQueueReportsStuckReferences(t *testing.T) {
	q := &IncompleteQueue{}
	q.Defer("statement x resultMap missing.Map", func() error { return assert.AnError })

	err := q.Drain()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.Map")
}

func TestSelectKeyIsParsedAsItsOwnSubStatement(t *testing.T) {
	const xml = `
<mapper namespace="shop.OrderMapper">
  <insert id="insertOrder" keyProperty="ID">
    <selectKey keyProperty="ID" resultType="long" order="BEFORE">
      select nextval('order_seq')
    </selectKey>
    insert into orders (id, total) values (#{ID}, #{total})
  </insert>
</mapper>`
	queue := &IncompleteQueue{}
	doc, err := ParseMapper([]byte(xml), nil, nil, queue, "")
	require.NoError(t, err)

	ins := doc.Statements["shop.OrderMapper.insertOrder"]
	require.NotNil(t, ins)
	require.NotNil(t, ins.SelectKey)
	assert.True(t, ins.SelectKey.Before)
	assert.Equal(t, []string{"ID"}, ins.SelectKey.KeyProperty)
	assert.Equal(t, "long", ins.SelectKey.ResultType)
	assert.Contains(t, ins.SelectKey.Inner, "order_seq")
}

func TestParseConfigurationRejectsUnknownSetting(t *testing.T) {
	const bad = `
<configuration>
  <settings>
    <setting name="notARealSetting" value="true"/>
  </settings>
</configuration>`
	_, err := ParseConfiguration([]byte(bad), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notARealSetting")
}

func TestParseConfigurationCollectsPluginsInOrder(t *testing.T) {
	const withPlugins = `
<configuration>
  <plugins>
    <plugin interceptor="audit">
      <property name="level" value="verbose"/>
    </plugin>
    <plugin interceptor="metrics"/>
  </plugins>
</configuration>`
	res, err := ParseConfiguration([]byte(withPlugins), nil)
	require.NoError(t, err)
	require.Len(t, res.Plugins, 2)
	assert.Equal(t, "audit", res.Plugins[0].Name)
	assert.Equal(t, "verbose", res.Plugins[0].Properties["level"])
	assert.Equal(t, "metrics", res.Plugins[1].Name)
}
