package elasticsearch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/olivere/elastic/v7"
)

// Criteria maps a field name to the value that field must hold. A document
// matches only when every entry matches.
type Criteria map[string]interface{}

// Fields returns the criteria field names in sorted order.
func (c Criteria) Fields() []string {
	fields := make([]string, 0, len(c))
	for f := range c {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

type clauseFunc func(field string, value interface{}) (elastic.Query, error)

func matchClause(field string, value interface{}) (elastic.Query, error) {
	return elastic.NewMatchQuery(field, value).Operator("and"), nil
}

func regexpClause(field string, value interface{}) (elastic.Query, error) {
	pattern, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("field %q: pattern must be a string, got %T", field, value)
	}
	return elastic.NewRegexpQuery(field, pattern), nil
}

// buildQuery turns criteria into a conjunction of clauses, one per field,
// each bound to its own field name.
func (b *Builder) buildQuery(op string, criteria Criteria, clause clauseFunc) (elastic.Query, error) {
	if len(criteria) == 0 {
		if !b.allowEmptyCriteria {
			return nil, ValidationError{Op: op, Reason: "criteria cannot be empty"}
		}
		return elastic.NewMatchAllQuery(), nil
	}

	q := elastic.NewBoolQuery()
	for _, field := range criteria.Fields() {
		if err := b.checkField(op, field); err != nil {
			return nil, err
		}
		value := criteria[field]
		if value == nil {
			return nil, ValidationError{Op: op, Reason: fmt.Sprintf("field %q: value cannot be null", field)}
		}
		c, err := clause(field, value)
		if err != nil {
			return nil, ValidationError{Op: op, Reason: err.Error()}
		}
		q.Must(c)
	}
	return q, nil
}

func (b *Builder) checkField(op, field string) error {
	if strings.TrimSpace(field) == "" {
		return ValidationError{Op: op, Reason: "field name cannot be empty"}
	}
	if b.allowedFields != nil && !b.allowedFields[field] {
		return ValidationError{Op: op, Reason: fmt.Sprintf("field %q is not allowed", field)}
	}
	return nil
}
