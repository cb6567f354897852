package templatefmt

import (
	"encoding/json"
	"reflect"
	"strings"
	"text/template"
	"time"
)

// DateLayout is calendar date layout used in outbound message bodies.
const DateLayout = "Jan 02, 2006"

// FuncMap returns shared message template helpers.
// Params: none.
// Returns: deterministic helper map used for all outbound message templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"upper":     Upper,
		"orDefault": OrDefault,
		"date":      FormatDate,
		"join":      strings.Join,
		"json":      MarshalJSON,
	}
}

// ParseMessageTemplate parses one message template with shared helpers.
// Params: template name and body.
// Returns: compiled template or parse error.
func ParseMessageTemplate(name, body string) (*template.Template, error) {
	return template.New(name).Funcs(FuncMap()).Option("missingkey=error").Parse(body)
}

// Upper upper-cases any string-like value.
// Params: string or named string type.
// Returns: upper-cased text, empty for unsupported values.
func Upper(value any) string {
	return strings.ToUpper(toString(value))
}

// OrDefault returns fallback when value renders empty.
// Params: fallback first so templates can pipe the value in.
// Returns: value text or fallback.
func OrDefault(fallback string, value any) string {
	text := toString(value)
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}

// FormatDate renders timestamp date part in its own offset.
// Params: time.Time or *time.Time.
// Returns: formatted date or "unknown" for zero values.
func FormatDate(value any) string {
	var ts time.Time
	switch typed := value.(type) {
	case time.Time:
		ts = typed
	case *time.Time:
		if typed == nil {
			return "unknown"
		}
		ts = *typed
	default:
		return "unknown"
	}
	if ts.IsZero() {
		return "unknown"
	}
	return ts.Format(DateLayout)
}

// MarshalJSON renders value into JSON string for template embedding.
// Params: template value of any type.
// Returns: marshaled JSON string or "null" on marshal failure.
func MarshalJSON(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "null"
	}
	return string(encoded)
}

type stringer interface {
	String() string
}

func toString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case stringer:
		return typed.String()
	}
	if v := reflect.ValueOf(value); v.Kind() == reflect.String {
		return v.String()
	}
	return ""
}
