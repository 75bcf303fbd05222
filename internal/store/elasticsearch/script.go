package elasticsearch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olivere/elastic/v7"
)

const scriptLang = "painless"

// Assignment is a parsed "<field>=<value-or-expression>" update expression.
type Assignment struct {
	Field string
	Expr  string
}

// ParseAssignment splits an update expression on its first '='. Only the
// shape is checked; the expression itself is left for the engine to compile.
func ParseAssignment(s string) (Assignment, error) {
	i := strings.IndexByte(s, '=')
	if i < 0 {
		return Assignment{}, fmt.Errorf("update expression %q: expected <field>=<value>", s)
	}

	field := strings.TrimSpace(s[:i])
	expr := strings.TrimSpace(s[i+1:])
	if field == "" {
		return Assignment{}, fmt.Errorf("update expression %q: field cannot be empty", s)
	}
	if expr == "" {
		return Assignment{}, fmt.Errorf("update expression %q: value cannot be empty", s)
	}
	for _, seg := range strings.Split(field, ".") {
		if strings.TrimSpace(seg) == "" {
			return Assignment{}, fmt.Errorf("update expression %q: empty segment in field path", s)
		}
	}

	return Assignment{Field: field, Expr: expr}, nil
}

// Script compiles the assignment into a painless script. The field path is
// always bound through params. A JSON scalar value is bound as params.value;
// anything else is inserted verbatim as a painless expression and must come
// from a trusted caller.
func (a Assignment) Script() *elastic.Script {
	segments := strings.Split(a.Field, ".")
	params := make(map[string]interface{}, len(segments)+1)

	var src strings.Builder
	src.WriteString("ctx._source")
	for i, seg := range segments {
		key := "field" + strconv.Itoa(i)
		params[key] = seg
		src.WriteString("[params." + key + "]")
	}

	src.WriteString(" = ")
	if v, ok := ParseLiteral(a.Expr); ok {
		params["value"] = v
		src.WriteString("params.value")
	} else {
		src.WriteString(a.Expr)
	}

	return elastic.NewScript(src.String()).Lang(scriptLang).Params(params)
}

// ParseLiteral reports whether expr is a single JSON scalar (null, bool,
// string or number) and returns it. Numbers come back as json.Number.
func ParseLiteral(expr string) (interface{}, bool) {
	dec := json.NewDecoder(strings.NewReader(expr))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}

	switch v.(type) {
	case nil, bool, string, json.Number:
		return v, true
	default:
		return nil, false
	}
}
