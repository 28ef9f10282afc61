// Package schema defines the legal shape of a certification record and
// validates untyped candidates (decoded YAML/JSON, form input, feed messages)
// against it. The schema is a table of field rules walked by one checker, so
// the same rules drive load-time and request-time validation.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/terra-clan/certmap/internal/models"
)

type kind int

const (
	kindString kind = iota
	kindBool
	kindInt
	kindFloat
	kindStringList
	kindObject
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindBool:
		return "boolean"
	case kindInt:
		return "integer"
	case kindFloat:
		return "number"
	case kindStringList:
		return "list of strings"
	case kindObject:
		return "object"
	}
	return "unknown"
}

// rule declares one field of the schema.
type rule struct {
	name     string
	kind     kind
	optional bool // key may be absent
	nullable bool // null is accepted
	nonEmpty bool
	url      bool
	pattern  *regexp.Regexp
	min, max *float64
	enum     []string
	fields   []rule
}

type option func(*rule)

func field(name string, k kind, opts ...option) rule {
	r := rule{name: name, kind: k}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func object(name string, fields []rule, opts ...option) rule {
	r := field(name, kindObject, opts...)
	r.fields = fields
	return r
}

func nonEmpty(r *rule)    { r.nonEmpty = true }
func nullable(r *rule)    { r.nullable = true }
func optional(r *rule)    { r.optional = true }
func absoluteURL(r *rule) { r.url = true }

func matching(re *regexp.Regexp) option {
	return func(r *rule) { r.pattern = re }
}

func between(lo, hi float64) option {
	return func(r *rule) { r.min, r.max = &lo, &hi }
}

func atLeast(lo float64) option {
	return func(r *rule) { r.min = &lo }
}

func oneOf[T ~string](values ...T) option {
	return func(r *rule) {
		r.enum = make([]string, len(values))
		for i, v := range values {
			r.enum[i] = string(v)
		}
	}
}

// Unreserved URL characters only.
var slugPattern = regexp.MustCompile(`^[A-Za-z0-9._~-]+$`)

var providerRules = []rule{
	field("name", kindString, nonEmpty),
	field("url", kindString, absoluteURL),
	field("image", kindString),
}

var requirementsRules = []rule{
	field("knowledge", kindString),
	field("work_experience", kindString),
	field("prior_courses_and_certifications", kindString),
}

var examDetailsRules = []rule{
	field("format", kindString, nonEmpty),
	field("duration", kindString, nullable),
	field("report_required", kindBool),
}

var certificationRules = []rule{
	field("id", kindInt, atLeast(1)),
	field("slug", kindString, nonEmpty, matching(slugPattern)),
	field("title", kindString, nonEmpty),
	field("abbreviation", kindString, nonEmpty),
	field("description", kindString, nonEmpty),
	field("image", kindString),
	field("url", kindString, absoluteURL),
	field("cost", kindString, nonEmpty),
	field("training_included", kindBool),
	field("number_of_attempts", kindInt, atLeast(0)),
	field("job_roles_titles", kindStringList),
	field("cert_type", kindString, oneOf(models.CertTypes()...)),
	field("total_votes", kindInt, atLeast(0)),
	field("market_presence", kindFloat, between(0, 1)),
	field("cost_effectiveness", kindFloat, between(1, 5)),
	field("skill_level", kindString, oneOf(models.SkillLevels()...)),
	field("quality", kindFloat, between(1, 5)),
	field("satisfaction", kindFloat, between(1, 5)),
	object("provider", providerRules, optional, nullable),
	field("domains_covered_titles", kindStringList),
	object("requirements_data", requirementsRules),
	object("exam_details_data", examDetailsRules),
	field("valid_for", kindString, nullable),
}

// checker accumulates violations while walking the rule table.
type checker struct {
	errs []FieldError
}

func (c *checker) fail(path string, err error, constraint string, value any) {
	c.errs = append(c.errs, FieldError{Path: path, Constraint: constraint, Value: value, Err: err})
}

func (c *checker) object(prefix string, m map[string]any, rules []rule) {
	for _, r := range rules {
		path := r.name
		if prefix != "" {
			path = prefix + "." + r.name
		}
		v, present := m[r.name]
		c.value(path, v, present, r)
	}
}

func (c *checker) value(path string, v any, present bool, r rule) {
	if !present {
		if !r.optional {
			c.fail(path, ErrRequired, r.kind.String(), nil)
		}
		return
	}
	if v == nil {
		if !r.nullable {
			c.fail(path, ErrRequired, r.kind.String(), nil)
		}
		return
	}

	switch r.kind {
	case kindString:
		s, ok := v.(string)
		if !ok {
			c.fail(path, ErrType, "string", v)
			return
		}
		c.str(path, s, r)
	case kindBool:
		if _, ok := v.(bool); !ok {
			c.fail(path, ErrType, "boolean", v)
		}
	case kindInt:
		f, ok := toFloat(v)
		if !ok {
			c.fail(path, ErrType, "integer", v)
			return
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			c.fail(path, ErrRange, rangeConstraint(r), v)
			return
		}
		if f != math.Trunc(f) {
			c.fail(path, ErrFraction, "integer", v)
			return
		}
		if f > math.MaxInt32 {
			c.fail(path, ErrRange, "integer below 2^31", v)
			return
		}
		c.bounds(path, f, v, r)
	case kindFloat:
		f, ok := toFloat(v)
		if !ok {
			c.fail(path, ErrType, "number", v)
			return
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			c.fail(path, ErrRange, rangeConstraint(r), v)
			return
		}
		c.bounds(path, f, v, r)
	case kindStringList:
		items, ok := toList(v)
		if !ok {
			c.fail(path, ErrType, "list of strings", v)
			return
		}
		for i, item := range items {
			if _, ok := item.(string); !ok {
				c.fail(fmt.Sprintf("%s[%d]", path, i), ErrType, "string", item)
			}
		}
	case kindObject:
		m, ok := toMap(v)
		if !ok {
			c.fail(path, ErrType, "object", v)
			return
		}
		c.object(path, m, r.fields)
	}
}

func (c *checker) str(path, s string, r rule) {
	if r.nonEmpty && strings.TrimSpace(s) == "" {
		c.fail(path, ErrEmpty, "non-empty string", s)
		return
	}
	if r.pattern != nil && s != "" && !r.pattern.MatchString(s) {
		c.fail(path, ErrPattern, "URL-safe identifier", s)
	}
	if r.url && !isAbsoluteURL(s) {
		c.fail(path, ErrURL, "absolute URL", s)
	}
	if len(r.enum) > 0 {
		for _, allowed := range r.enum {
			if s == allowed {
				return
			}
		}
		c.fail(path, ErrEnum, "one of "+strings.Join(r.enum, ", "), s)
	}
}

func (c *checker) bounds(path string, f float64, raw any, r rule) {
	if (r.min != nil && f < *r.min) || (r.max != nil && f > *r.max) {
		c.fail(path, ErrRange, rangeConstraint(r), raw)
	}
}

func rangeConstraint(r rule) string {
	switch {
	case r.min != nil && r.max != nil:
		return fmt.Sprintf("%s in [%g, %g]", r.kind, *r.min, *r.max)
	case r.min != nil:
		return fmt.Sprintf("%s >= %g", r.kind, *r.min)
	case r.max != nil:
		return fmt.Sprintf("%s <= %g", r.kind, *r.max)
	}
	return "finite " + r.kind.String()
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// toFloat accepts every numeric representation produced by the JSON and
// YAML decoders or by Go callers. Booleans and numeric strings are rejected.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}
