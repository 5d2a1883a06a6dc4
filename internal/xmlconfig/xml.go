// Package xmlconfig parses `<configuration>` and `<mapper>` XML documents
// into the registries internal/model describes (component G).
package xmlconfig

import "encoding/xml"

// configurationXML mirrors the top-level `<configuration>` element and its
// fixed child order: properties, settings, typeAliases, plugins,
// objectFactory, objectWrapperFactory, reflectorFactory, environments,
// databaseIdProvider, typeHandlers, mappers.
type configurationXML struct {
	XMLName             xml.Name          `xml:"configuration"`
	Properties          propertiesXML     `xml:"properties"`
	Settings            settingsXML       `xml:"settings"`
	TypeAliases         typeAliasesXML    `xml:"typeAliases"`
	Plugins             pluginsXML        `xml:"plugins"`
	ObjectFactory       objectFactoryXML  `xml:"objectFactory"`
	ObjectWrapperFactory factoryRefXML    `xml:"objectWrapperFactory"`
	ReflectorFactory    factoryRefXML     `xml:"reflectorFactory"`
	Environments        environmentsXML   `xml:"environments"`
	DatabaseIDProvider  databaseIDXML     `xml:"databaseIdProvider"`
	TypeHandlers        typeHandlersXML   `xml:"typeHandlers"`
	Mappers             mappersXML        `xml:"mappers"`
}

type propertyXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type propertiesXML struct {
	Resource string        `xml:"resource,attr"`
	URL      string        `xml:"url,attr"`
	Entries  []propertyXML `xml:"property"`
}

type settingXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type settingsXML struct {
	Entries []settingXML `xml:"setting"`
}

type typeAliasXML struct {
	Alias string `xml:"alias,attr"`
	Type  string `xml:"type,attr"`
}

type packageRefXML struct {
	Name string `xml:"name,attr"`
}

type typeAliasesXML struct {
	Aliases  []typeAliasXML  `xml:"typeAlias"`
	Packages []packageRefXML `xml:"package"`
}

type pluginXML struct {
	Interceptor string        `xml:"interceptor,attr"`
	Properties  []propertyXML `xml:"property"`
}

type pluginsXML struct {
	Plugins []pluginXML `xml:"plugin"`
}

type objectFactoryXML struct {
	Type       string        `xml:"type,attr"`
	Properties []propertyXML `xml:"property"`
}

type factoryRefXML struct {
	Type string `xml:"type,attr"`
}

type environmentXML struct {
	ID             string          `xml:"id,attr"`
	TransactionMgr transactionMgrXML `xml:"transactionManager"`
	DataSource     dataSourceXML   `xml:"dataSource"`
}

type transactionMgrXML struct {
	Type       string        `xml:"type,attr"`
	Properties []propertyXML `xml:"property"`
}

type dataSourceXML struct {
	Type       string        `xml:"type,attr"`
	Properties []propertyXML `xml:"property"`
}

type environmentsXML struct {
	Default      string           `xml:"default,attr"`
	Environments []environmentXML `xml:"environment"`
}

type databaseIDXML struct {
	Type       string        `xml:"type,attr"`
	Properties []propertyXML `xml:"property"`
}

type typeHandlerXML struct {
	JavaType string `xml:"javaType,attr"`
	JdbcType string `xml:"jdbcType,attr"`
	Handler  string `xml:"handler,attr"`
}

type typeHandlersXML struct {
	Handlers []typeHandlerXML `xml:"typeHandler"`
	Packages []packageRefXML  `xml:"package"`
}

type mapperXML struct {
	Resource string `xml:"resource,attr"`
	URL      string `xml:"url,attr"`
	Class    string `xml:"class,attr"`
}

type mapperPackageXML struct {
	Name string `xml:"name,attr"`
}

type mappersXML struct {
	Mappers  []mapperXML        `xml:"mapper"`
	Packages []mapperPackageXML `xml:"package"`
}

func parseConfiguration(data []byte) (*configurationXML, error) {
	var cfg configurationXML
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
