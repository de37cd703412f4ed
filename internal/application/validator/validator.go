// Package validator checks a ticket detail document against the parameter
// schema declared by its template.
package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/pkg/utils"
)

// Parameter types
const (
	TypeString            = "string"
	TypeNumber            = "number"
	TypeBoolean           = "boolean"
	TypeDate              = "date"
	TypeEmail             = "email"
	TypeRegularExpression = "regular_expression"
	TypeSelectItem        = "select_item"
)

// DateLayout is an ISO-8601 date-time with microsecond precision.
const DateLayout = "2006-01-02T15:04:05.000000"

var dateLayouts = []string{DateLayout, DateLayout + "Z07:00"}

// ParseDate parses a value accepted by the date type. Zone-less values are UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("must match %s", DateLayout)
}

var typeAliases = map[string]string{
	"regex":  TypeRegularExpression,
	"select": TypeSelectItem,
}

// Validate checks detail against schema in declaration order and returns an
// InvalidParameterValue error for the first violation.
func Validate(schema []entity.ParamDescriptor, detail entity.Document) error {
	for _, p := range schema {
		name := p.FieldName()
		value, present := detail[name]
		if !present || value == nil {
			if p.Required {
				return apperr.InvalidParameterValue("%s is required", name)
			}
			continue
		}
		if err := checkValue(p, value); err != nil {
			return apperr.InvalidParameterValue("%s: %v", name, err)
		}
	}
	return nil
}

// CheckSchema reports descriptors that could never validate anything:
// unknown types, unnamed fields, bad patterns and inverted bounds.
func CheckSchema(schema []entity.ParamDescriptor) error {
	seen := make(map[string]bool, len(schema))
	for i, p := range schema {
		name := p.FieldName()
		if name == "" {
			return apperr.InvalidParameterValue("parameter %d has no name", i)
		}
		if seen[name] {
			return apperr.InvalidParameterValue("parameter %s is declared twice", name)
		}
		seen[name] = true

		switch normalizeType(p.Type) {
		case TypeString, TypeNumber, TypeBoolean, TypeDate, TypeEmail:
		case TypeRegularExpression:
			if _, err := compileFull(p.Pattern); err != nil {
				return apperr.InvalidParameterValue("parameter %s: invalid pattern: %v", name, err)
			}
		case TypeSelectItem:
			if len(p.Choices) == 0 {
				return apperr.InvalidParameterValue("parameter %s: choices are empty", name)
			}
		default:
			return apperr.InvalidParameterValue("parameter %s: unsupported type %q", name, p.Type)
		}
		if len(p.Choices) > 0 && normalizeType(p.Type) != TypeSelectItem {
			return apperr.InvalidParameterValue("parameter %s: choices require type %s", name, TypeSelectItem)
		}

		if p.MinLength != nil && p.MaxLength != nil && *p.MinLength > *p.MaxLength {
			return apperr.InvalidParameterValue("parameter %s: min_length exceeds max_length", name)
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return apperr.InvalidParameterValue("parameter %s: min exceeds max", name)
		}
	}
	return nil
}

func normalizeType(t string) string {
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

func checkValue(p entity.ParamDescriptor, value interface{}) error {
	switch normalizeType(p.Type) {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("must be a string")
		}
		return checkLength(p, s)

	case TypeNumber:
		n, ok := toNumber(value)
		if !ok || !finite(n) {
			return fmt.Errorf("must be a number")
		}
		if p.Min != nil && n < *p.Min {
			return fmt.Errorf("must be at least %v", *p.Min)
		}
		if p.Max != nil && n > *p.Max {
			return fmt.Errorf("must be at most %v", *p.Max)
		}
		return nil

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("must be true or false")
		}
		return nil

	case TypeDate:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("must be a date string")
		}
		_, err := ParseDate(s)
		return err

	case TypeEmail:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("must be a string")
		}
		if err := checkLength(p, s); err != nil {
			return err
		}
		return utils.ValidateEmail(s)

	case TypeRegularExpression:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("must be a string")
		}
		re, err := compileFull(p.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		if !re.MatchString(s) {
			return fmt.Errorf("does not match %s", p.Pattern)
		}
		return checkLength(p, s)

	case TypeSelectItem:
		for _, choice := range p.Choices {
			if sameChoice(choice, value) {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", p.Choices)

	default:
		return fmt.Errorf("unsupported type %q", p.Type)
	}
}

func checkLength(p entity.ParamDescriptor, s string) error {
	n := utf8.RuneCountInString(s)
	if p.MinLength != nil && n < *p.MinLength {
		return fmt.Errorf("must be at least %d characters", *p.MinLength)
	}
	if p.MaxLength != nil && n > *p.MaxLength {
		return fmt.Errorf("must be at most %d characters", *p.MaxLength)
	}
	return nil
}

func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil && finite(f)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil && finite(f)
	}
	return 0, false
}

// finite rejects NaN and the infinities, which slip through range checks
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sameChoice(choice, value interface{}) bool {
	if a, ok := toNumber(choice); ok {
		if _, isString := choice.(string); !isString {
			b, ok := toNumber(value)
			return ok && a == b
		}
	}
	return fmt.Sprint(choice) == fmt.Sprint(value)
}

func compileFull(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)$`)
}
