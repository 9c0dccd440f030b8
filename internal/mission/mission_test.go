package mission

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func ready(id string, priority int) Mission {
	return Mission{ID: id, Status: StatusReady, RiskTier: TierAutomatic, Priority: priority}
}

func ids(missions []Mission) []string {
	out := make([]string, 0, len(missions))
	for _, m := range missions {
		out = append(out, m.ID)
	}
	return out
}

func TestSelectReady(t *testing.T) {
	testCases := []struct {
		name     string
		missions []Mission
		max      int
		want     []string
	}{
		{
			name:     "priority ascending with id tie-break",
			missions: []Mission{ready("NM-003", 30), ready("NM-001", 10), ready("NM-002", 10)},
			max:      10,
			want:     []string{"NM-001", "NM-002", "NM-003"},
		},
		{
			name: "status and tier filter regardless of priority",
			missions: []Mission{
				{ID: "NM-100", Status: "draft", RiskTier: TierAutomatic, Priority: 1},
				{ID: "NM-101", Status: StatusReady, RiskTier: "L2", Priority: 1},
				{ID: "NM-102", Status: StatusReady, Priority: 1},
				ready("NM-103", 99),
			},
			max:  10,
			want: []string{"NM-103"},
		},
		{
			name: "truncation keeps lowest (priority, id)",
			missions: []Mission{
				ready("NM-005", 50), ready("NM-004", 20), ready("NM-003", 20),
				ready("NM-002", 70), ready("NM-001", 60),
			},
			max:  2,
			want: []string{"NM-003", "NM-004"},
		},
		{
			name:     "zero capacity",
			missions: []Mission{ready("NM-001", 1)},
			max:      0,
			want:     []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(SelectReady(tc.missions, tc.max))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSelectReadyIgnoresLoadOrder(t *testing.T) {
	a := []Mission{ready("NM-002", 10), ready("NM-001", 10), ready("NM-003", 10)}
	b := []Mission{ready("NM-003", 10), ready("NM-002", 10), ready("NM-001", 10)}
	if !reflect.DeepEqual(ids(SelectReady(a, 2)), ids(SelectReady(b, 2))) {
		t.Error("selection depends on input order")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"NM-020.yaml":   "mission_id: NM-020\ntitle: Version\nstatus: ready\npriority: 10\nrisk:\n  tier: L1\nrepos:\n  - name: ls-backend\n  - plain-string\n  - branch: main\nowner: night\n",
		"NM-011.yml":    "status: ready\nrisk: {tier: L1}\npriority: high\n",
		"NM-999.yaml":   "status: [unterminated\n",
		"notes.txt":     "ignored",
		"template.yaml": "mission_id: NM-TEMPLATE\nstatus: ready\nrisk: {tier: L1}\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	report, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(report.Missions) != 2 {
		t.Fatalf("missions = %d, want 2", len(report.Missions))
	}
	if len(report.Skipped) != 1 || filepath.Base(report.Skipped[0].Path) != "NM-999.yaml" {
		t.Fatalf("skipped = %+v", report.Skipped)
	}

	byID := map[string]Mission{}
	for _, m := range report.Missions {
		byID[m.ID] = m
	}

	if _, ok := byID["NM-TEMPLATE"]; ok {
		t.Error("files without the NM- prefix must not load as missions")
	}

	nm011, ok := byID["NM-011"]
	if !ok {
		t.Fatal("missing mission_id should default to file stem NM-011")
	}
	if nm011.Priority != DefaultPriority {
		t.Errorf("non-integer priority = %d, want default", nm011.Priority)
	}
	if nm011.RiskTier != "L1" {
		t.Errorf("flow-style risk tier = %q", nm011.RiskTier)
	}

	nm020 := byID["NM-020"]
	if nm020.Priority != 10 || nm020.Title != "Version" {
		t.Errorf("NM-020 = %+v", nm020)
	}
	if got := nm020.RepoNames(); !reflect.DeepEqual(got, []string{"ls-backend"}) {
		t.Errorf("repo names = %v", got)
	}
	if len(nm020.Repos) != 3 {
		t.Errorf("repos = %d, want 3 descriptors including nameless ones", len(nm020.Repos))
	}
	if nm020.Fields["owner"] != "night" {
		t.Errorf("extra fields not preserved: %v", nm020.Fields)
	}
}

func TestLoadMissingDir(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
