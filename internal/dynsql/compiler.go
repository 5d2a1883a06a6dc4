package dynsql

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/gogf/gf/errors/gerror"
)

// FragmentResolver looks up a `<sql>` fragment's raw inner XML by its
// (possibly namespace-qualified) refid, for `<include>` inlining.
type FragmentResolver func(refid string) (string, bool)

// Compile parses a statement body's raw inner XML (as captured by
// xmlconfig's `,innerxml`) into a Node tree, inlining `<include>`
// references via resolve. The body is wrapped in a synthetic root element
// so it can be fed to encoding/xml's decoder regardless of how many
// top-level children it has.
func Compile(innerXML string, resolve FragmentResolver) (Node, error) {
	expanded, err := inlineIncludes(innerXML, resolve, map[string]bool{})
	if err != nil {
		return nil, err
	}
	wrapped := "<root>" + expanded + "</root>"
	dec := xml.NewDecoder(strings.NewReader(wrapped))
	root, err := parseElement(dec, xml.StartElement{Name: xml.Name{Local: "root"}})
	if err != nil {
		return nil, gerror.Wrap(err, "dynsql: compile statement body")
	}
	return root, nil
}

// inlineIncludes replaces every `<include refid="...">...</include>` with
// the referenced fragment's raw XML, recursively, guarding against
// self-reference cycles.
func inlineIncludes(body string, resolve FragmentResolver, seen map[string]bool) (string, error) {
	for {
		start := strings.Index(body, "<include")
		if start < 0 {
			return body, nil
		}
		tagEnd := strings.IndexByte(body[start:], '>')
		if tagEnd < 0 {
			return body, gerror.Newf("dynsql: unterminated <include> tag")
		}
		tagEnd += start

		selfClosing := body[tagEnd-1] == '/'
		var fullEnd int
		var propsXML string
		if selfClosing {
			fullEnd = tagEnd + 1
		} else {
			closeIdx := strings.Index(body[tagEnd:], "</include>")
			if closeIdx < 0 {
				return body, gerror.Newf("dynsql: unterminated <include> element")
			}
			propsXML = body[tagEnd+1 : tagEnd+closeIdx]
			fullEnd = tagEnd + closeIdx + len("</include>")
		}

		refid := extractAttr(body[start:tagEnd+1], "refid")
		if refid == "" {
			return body, gerror.Newf("dynsql: <include> missing refid")
		}
		if seen[refid] {
			return body, gerror.Newf("dynsql: <include refid=%q> cycle", refid)
		}
		fragment, ok := resolve(refid)
		if !ok {
			return body, gerror.Newf("dynsql: unresolved <include refid=%q>", refid)
		}

		props := extractProperties(propsXML)
		substituted := applyIncludeProperties(fragment, props)

		childSeen := map[string]bool{}
		for k, v := range seen {
			childSeen[k] = v
		}
		childSeen[refid] = true
		expandedFragment, err := inlineIncludes(substituted, resolve, childSeen)
		if err != nil {
			return body, err
		}

		body = body[:start] + expandedFragment + body[fullEnd:]
	}
}

func extractAttr(tag, name string) string {
	marker := name + "=\""
	idx := strings.Index(tag, marker)
	if idx < 0 {
		return ""
	}
	rest := tag[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func extractProperties(inner string) map[string]string {
	props := map[string]string{}
	remaining := inner
	for {
		idx := strings.Index(remaining, "<property")
		if idx < 0 {
			return props
		}
		tagEnd := strings.IndexByte(remaining[idx:], '>')
		if tagEnd < 0 {
			return props
		}
		tag := remaining[idx : idx+tagEnd+1]
		name := extractAttr(tag, "name")
		value := extractAttr(tag, "value")
		if name != "" {
			props[name] = value
		}
		remaining = remaining[idx+tagEnd+1:]
	}
}

func applyIncludeProperties(fragment string, props map[string]string) string {
	if len(props) == 0 {
		return fragment
	}
	for name, value := range props {
		fragment = strings.ReplaceAll(fragment, "${"+name+"}", value)
	}
	return fragment
}

// parseElement walks one XML element's children, dispatching on tag name
// to build the matching Node, collecting runs of CharData/unrecognized
// content into TextNode.
func parseElement(dec *xml.Decoder, start xml.StartElement) (Node, error) {
	mixed := &MixedNode{}
	var textBuf strings.Builder

	flush := func() {
		if textBuf.Len() > 0 {
			mixed.Children = append(mixed.Children, &TextNode{Text: textBuf.String()})
			textBuf.Reset()
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			textBuf.Write(t)
		case xml.StartElement:
			flush()
			child, err := compileElement(dec, t)
			if err != nil {
				return nil, err
			}
			mixed.Children = append(mixed.Children, child)
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				flush()
				return mixed, nil
			}
		}
	}
	flush()
	return mixed, nil
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func compileElement(dec *xml.Decoder, start xml.StartElement) (Node, error) {
	switch start.Name.Local {
	case "if":
		body, err := parseElement(dec, start)
		if err != nil {
			return nil, err
		}
		return &IfNode{Test: attr(start, "test"), Body: body}, nil

	case "choose":
		return compileChoose(dec, start)

	case "where":
		body, err := parseElement(dec, start)
		if err != nil {
			return nil, err
		}
		return NewWhereNode(body), nil

	case "set":
		body, err := parseElement(dec, start)
		if err != nil {
			return nil, err
		}
		return NewSetNode(body), nil

	case "trim":
		body, err := parseElement(dec, start)
		if err != nil {
			return nil, err
		}
		return &TrimNode{
			Body:            body,
			Prefix:          attr(start, "prefix"),
			Suffix:          attr(start, "suffix"),
			PrefixOverrides: splitPipe(attr(start, "prefixOverrides")),
			SuffixOverrides: splitPipe(attr(start, "suffixOverrides")),
		}, nil

	case "foreach":
		body, err := parseElement(dec, start)
		if err != nil {
			return nil, err
		}
		return &ForeachNode{
			Collection: attr(start, "collection"),
			Item:       attr(start, "item"),
			Index:      attr(start, "index"),
			Open:       attr(start, "open"),
			Close:      attr(start, "close"),
			Separator:  attr(start, "separator"),
			Body:       body,
		}, nil

	case "bind":
		if err := skipToEnd(dec, start); err != nil {
			return nil, err
		}
		return &BindNode{Name: attr(start, "name"), Value: attr(start, "value")}, nil

	case "selectKey":
		// Parsed separately by xmlconfig as its own sub-statement; it
		// contributes nothing to the enclosing statement's rendered SQL.
		if err := skipToEnd(dec, start); err != nil {
			return nil, err
		}
		return &MixedNode{}, nil

	default:
		return parseElement(dec, start)
	}
}

func compileChoose(dec *xml.Decoder, start xml.StartElement) (Node, error) {
	choose := &ChooseNode{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "when":
				body, err := parseElement(dec, t)
				if err != nil {
					return nil, err
				}
				choose.Whens = append(choose.Whens, &IfNode{Test: attr(t, "test"), Body: body})
			case "otherwise":
				body, err := parseElement(dec, t)
				if err != nil {
					return nil, err
				}
				choose.Otherwise = body
			}
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				return choose, nil
			}
		}
	}
	return choose, nil
}

func skipToEnd(dec *xml.Decoder, start xml.StartElement) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == start.Name.Local {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				if depth == 0 {
					return nil
				}
				depth--
			}
		}
	}
}

func splitPipe(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
