package utils

import (
	"encoding/json"
	"testing"
)

func TestIntField(t *testing.T) {
	testCases := []struct {
		name   string
		fields map[string]any
		want   int
		wantOK bool
	}{
		{name: "yaml int", fields: map[string]any{"priority": 10}, want: 10, wantOK: true},
		{name: "json number", fields: map[string]any{"priority": json.Number("7")}, want: 7, wantOK: true},
		{name: "integral float", fields: map[string]any{"priority": float64(3)}, want: 3, wantOK: true},
		{name: "fractional float", fields: map[string]any{"priority": 2.5}, wantOK: false},
		{name: "string", fields: map[string]any{"priority": "10"}, wantOK: false},
		{name: "missing", fields: map[string]any{}, wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := IntField(tc.fields, "priority")
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	fields := map[string]any{
		"reason":  "",
		"message": "  committed  ",
		"details": "ignored",
	}
	if got := FirstNonEmpty(fields, "reason", "message", "details"); got != "committed" {
		t.Errorf("got %q, want %q", got, "committed")
	}
	if got := FirstNonEmpty(fields, "missing"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestMapField(t *testing.T) {
	fields := map[string]any{
		"risk":  map[string]any{"tier": "L1"},
		"other": map[any]any{"tier": "L2"},
		"flat":  "L1",
	}
	if got := StringField(MapField(fields, "risk"), "tier"); got != "L1" {
		t.Errorf("risk tier = %q", got)
	}
	if got := StringField(MapField(fields, "other"), "tier"); got != "L2" {
		t.Errorf("other tier = %q", got)
	}
	if MapField(fields, "flat") != nil {
		t.Error("expected nil for non-map value")
	}
}
