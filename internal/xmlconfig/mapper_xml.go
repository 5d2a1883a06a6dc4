package xmlconfig

import "encoding/xml"

// mapperDocXML mirrors a mapper XML file's root `<mapper namespace="...">`
// element: cache-ref, cache, parameterMap, resultMap, sql, and the four
// statement kinds, each collected as raw inner XML so dynsql can walk it
// into a node tree without xmlconfig needing to know dynsql's grammar.
type mapperDocXML struct {
	XMLName      xml.Name            `xml:"mapper"`
	Namespace    string              `xml:"namespace,attr"`
	CacheRef     *cacheRefXML        `xml:"cache-ref"`
	Cache        *cacheXML           `xml:"cache"`
	ParameterMap []parameterMapXML   `xml:"parameterMap"`
	ResultMap    []resultMapXML      `xml:"resultMap"`
	Sql          []sqlFragmentXML    `xml:"sql"`
	Select       []statementXML      `xml:"select"`
	Insert       []statementXML      `xml:"insert"`
	Update       []statementXML      `xml:"update"`
	Delete       []statementXML      `xml:"delete"`
}

type cacheRefXML struct {
	Namespace string `xml:"namespace,attr"`
}

type cacheXML struct {
	Type          string        `xml:"type,attr"`
	Eviction      string        `xml:"eviction,attr"`
	FlushInterval string        `xml:"flushInterval,attr"`
	Size          string        `xml:"size,attr"`
	ReadOnly      string        `xml:"readOnly,attr"`
	Blocking      string        `xml:"blocking,attr"`
	Properties    []propertyXML `xml:"property"`
}

type parameterMapXML struct {
	ID      string               `xml:"id,attr"`
	Type    string               `xml:"type,attr"`
	Entries []parameterEntryXML  `xml:"parameter"`
}

type parameterEntryXML struct {
	Property  string `xml:"property,attr"`
	JavaType  string `xml:"javaType,attr"`
	JdbcType  string `xml:"jdbcType,attr"`
	Mode      string `xml:"mode,attr"`
	TypeHandler string `xml:"typeHandler,attr"`
}

type resultMapXML struct {
	ID                  string             `xml:"id,attr"`
	Type                string             `xml:"type,attr"`
	Extends             string             `xml:"extends,attr"`
	AutoMapping         string             `xml:"autoMapping,attr"`
	Constructor         *constructorXML    `xml:"constructor"`
	ID_                 []resultEntryXML   `xml:"id"`
	Result              []resultEntryXML   `xml:"result"`
	Association         []associationXML   `xml:"association"`
	Collection          []collectionXML    `xml:"collection"`
	Discriminator       *discriminatorXML  `xml:"discriminator"`
}

type constructorXML struct {
	IDArg []resultEntryXML `xml:"idArg"`
	Arg   []resultEntryXML `xml:"arg"`
}

type resultEntryXML struct {
	Property       string `xml:"property,attr"`
	Column         string `xml:"column,attr"`
	JavaType       string `xml:"javaType,attr"`
	JdbcType       string `xml:"jdbcType,attr"`
	TypeHandler    string `xml:"typeHandler,attr"`
}

type associationXML struct {
	Property      string           `xml:"property,attr"`
	Column        string           `xml:"column,attr"`
	JavaType      string           `xml:"javaType,attr"`
	ResultMap     string           `xml:"resultMap,attr"`
	Select        string           `xml:"select,attr"`
	ColumnPrefix  string           `xml:"columnPrefix,attr"`
	NotNullColumn string           `xml:"notNullColumn,attr"`
	ID            []resultEntryXML `xml:"id"`
	Result        []resultEntryXML `xml:"result"`
}

type collectionXML struct {
	Property      string           `xml:"property,attr"`
	Column        string           `xml:"column,attr"`
	OfType        string           `xml:"ofType,attr"`
	ResultMap     string           `xml:"resultMap,attr"`
	Select        string           `xml:"select,attr"`
	ColumnPrefix  string           `xml:"columnPrefix,attr"`
	NotNullColumn string           `xml:"notNullColumn,attr"`
	ID            []resultEntryXML `xml:"id"`
	Result        []resultEntryXML `xml:"result"`
}

type discriminatorXML struct {
	Column   string         `xml:"column,attr"`
	JavaType string         `xml:"javaType,attr"`
	JdbcType string         `xml:"jdbcType,attr"`
	Case     []discCaseXML  `xml:"case"`
}

type discCaseXML struct {
	Value     string `xml:"value,attr"`
	ResultMap string `xml:"resultMap,attr"`
	ResultType string `xml:"resultType,attr"`
}

type sqlFragmentXML struct {
	ID    string `xml:"id,attr"`
	Inner string `xml:",innerxml"`
}

// statementXML captures a select/insert/update/delete element's attributes
// plus its raw inner XML, which dynsql compiles into a node tree separately
// (keeping xmlconfig ignorant of the `<if>`/`<foreach>`/... grammar).
type statementXML struct {
	ID              string `xml:"id,attr"`
	ParameterType   string `xml:"parameterType,attr"`
	ParameterMap    string `xml:"parameterMap,attr"`
	ResultType      string `xml:"resultType,attr"`
	ResultMap       string `xml:"resultMap,attr"`
	StatementType   string `xml:"statementType,attr"`
	FetchSize       string `xml:"fetchSize,attr"`
	Timeout         string `xml:"timeout,attr"`
	FlushCache      string `xml:"flushCache,attr"`
	UseCache        string `xml:"useCache,attr"`
	ResultOrdered   string `xml:"resultOrdered,attr"`
	DatabaseID      string `xml:"databaseId,attr"`
	KeyProperty     string `xml:"keyProperty,attr"`
	KeyColumn       string `xml:"keyColumn,attr"`
	UseGeneratedKeys string `xml:"useGeneratedKeys,attr"`
	SelectKey       *selectKeyXML `xml:"selectKey"`
	Inner           string `xml:",innerxml"`
}

// selectKeyXML is an insert/update statement's `<selectKey>` child, parsed
// as its own sub-statement (dynsql never sees it mixed into the parent's
// SQL text; compileElement skips the tag entirely).
type selectKeyXML struct {
	KeyProperty   string `xml:"keyProperty,attr"`
	KeyColumn     string `xml:"keyColumn,attr"`
	ResultType    string `xml:"resultType,attr"`
	Order         string `xml:"order,attr"`
	StatementType string `xml:"statementType,attr"`
	Inner         string `xml:",innerxml"`
}

func parseMapperDoc(data []byte) (*mapperDocXML, error) {
	var doc mapperDocXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
