package matching

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/oj"
)

// jsonMatch compares JSON bodies structurally. The asserting document may not
// add fields the stub does not declare, while array order is not significant.
// A stub that is not JSON is treated as a pattern over the raw text.
func (m *Matcher) jsonMatch(want, got string, captures Captures) bool {
	expected, err := oj.ParseString(want)
	if err != nil {
		return m.stringsMatch(want, got, TokenPost, captures)
	}
	actual, err := oj.ParseString(got)
	if err != nil {
		return m.stringsMatch(want, got, TokenPost, captures)
	}
	if jsonEqual(expected, actual) {
		return true
	}
	return m.stringsMatch(escapeJSONBrackets(want), got, TokenPost, captures)
}

func jsonEqual(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok || !jsonEqual(ev, av) {
				return false
			}
		}
		return true
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		used := make([]bool, len(a))
	next:
		for _, ev := range e {
			for i, av := range a {
				if !used[i] && jsonEqual(ev, av) {
					used[i] = true
					continue next
				}
			}
			return false
		}
		return true
	}

	if ef, ok := jsonNumber(expected); ok {
		af, ok := jsonNumber(actual)
		return ok && ef == af
	}
	return expected == actual
}

func jsonNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

var jsonBrackets = strings.NewReplacer("{", `\{`, "}", `\}`, "[", `\[`, "]", `\]`)

func escapeJSONBrackets(s string) string {
	return jsonBrackets.Replace(s)
}

// xmlMatch compares XML documents semantically: attribute and sibling order,
// comments and insignificant whitespace are ignored. Text and attribute
// values may use ${xmlunit.ignore}, ${xmlunit.isNumber} and
// ${xmlunit.matchesRegex(...)} placeholders. Unparseable input falls back to
// pattern matching.
func (m *Matcher) xmlMatch(want, got string, captures Captures) bool {
	expected := etree.NewDocument()
	actual := etree.NewDocument()
	if expected.ReadFromString(want) != nil || actual.ReadFromString(got) != nil ||
		expected.Root() == nil || actual.Root() == nil {
		return m.patterns.Compile(want).MatchInto(got, TokenPost, captures)
	}
	return elementsEqual(expected.Root(), actual.Root())
}

func elementsEqual(expected, actual *etree.Element) bool {
	if expected.Tag != actual.Tag || expected.NamespaceURI() != actual.NamespaceURI() {
		return false
	}
	if !attributesEqual(expected, actual) {
		return false
	}
	if !valuesEqual(elementText(expected), elementText(actual)) {
		return false
	}

	ec, ac := expected.ChildElements(), actual.ChildElements()
	if len(ec) != len(ac) {
		return false
	}
	used := make([]bool, len(ac))
next:
	for _, e := range ec {
		for i, a := range ac {
			if !used[i] && elementsEqual(e, a) {
				used[i] = true
				continue next
			}
		}
		return false
	}
	return true
}

func attributesEqual(expected, actual *etree.Element) bool {
	ea, aa := attributes(expected), attributes(actual)
	if len(ea) != len(aa) {
		return false
	}
	for k, ev := range ea {
		av, ok := aa[k]
		if !ok || !valuesEqual(ev, av) {
			return false
		}
	}
	return true
}

// attributes returns non-namespace-declaration attributes keyed by
// namespace URI and local name.
func attributes(e *etree.Element) map[string]string {
	attrs := make(map[string]string, len(e.Attr))
	for _, a := range e.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		attrs[a.NamespaceURI()+"|"+a.Key] = a.Value
	}
	return attrs
}

// elementText joins the element's direct character data with whitespace
// normalized.
func elementText(e *etree.Element) string {
	var b strings.Builder
	for _, t := range e.Child {
		if cd, ok := t.(*etree.CharData); ok {
			b.WriteString(cd.Data)
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var placeholderPattern = regexp.MustCompile(`^\$\{xmlunit\.(\w+)(?:\((.*)\))?\}$`)

func valuesEqual(expected, actual string) bool {
	groups := placeholderPattern.FindStringSubmatch(expected)
	if groups == nil {
		return expected == actual
	}
	switch groups[1] {
	case "ignore":
		return true
	case "isNumber":
		_, err := strconv.ParseFloat(actual, 64)
		return err == nil
	case "matchesRegex":
		re, err := regexp.Compile(`\A(?:` + groups[2] + `)\z`)
		return err == nil && re.MatchString(actual)
	}
	return expected == actual
}
