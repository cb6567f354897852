package templatefmt

import (
	"strings"
	"testing"
	"time"
)

type namedString string

func TestHelpers(t *testing.T) {
	t.Parallel()

	if got := Upper(namedString("in_progress")); got != "IN_PROGRESS" {
		t.Fatalf("upper named string: %q", got)
	}
	if got := OrDefault("Not specified", ""); got != "Not specified" {
		t.Fatalf("orDefault empty: %q", got)
	}
	if got := OrDefault("Not specified", namedString("Ward 1")); got != "Ward 1" {
		t.Fatalf("orDefault value: %q", got)
	}
	if got := FormatDate(time.Date(2025, 11, 10, 14, 25, 0, 0, time.UTC)); got != "Nov 10, 2025" {
		t.Fatalf("date: %q", got)
	}
	if got := FormatDate(time.Time{}); got != "unknown" {
		t.Fatalf("zero date: %q", got)
	}
}

func TestParseMessageTemplateRendersPipeline(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseMessageTemplate("t", `{{ .Road | orDefault "Not specified" }} {{ upper .Priority }} {{ join .Roles ", " }}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out strings.Builder
	err = tmpl.Execute(&out, map[string]any{"Road": "", "Priority": namedString("high"), "Roles": []string{"supervisor", "manager"}})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.String() != "Not specified HIGH supervisor, manager" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestParseMessageTemplateMissingKey(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseMessageTemplate("t", `{{ .Missing }}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := tmpl.Execute(&strings.Builder{}, map[string]any{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
