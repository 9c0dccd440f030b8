package mission

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"nightrunner/internal/logger"
	"nightrunner/internal/utils"
)

/*
Load reads every NM-*.yaml / NM-*.yml document in dir, one mission per file,
in lexical filename order. Other files, such as templates, are ignored. A document looks like:

	mission_id: NM-020
	title: Add version constant
	status: ready
	priority: 10
	risk:
	  tier: L1
	repos:
	  - name: ls-backend

A missing mission_id falls back to the file stem. Files that fail to decode
are reported in LoadReport.Skipped; the remaining files still load.
*/
func Load(dir string) (LoadReport, error) {
	clean := filepath.Clean(dir)
	entries, err := os.ReadDir(clean)
	if err != nil {
		return LoadReport{}, fmt.Errorf("read missions dir %s: %w", clean, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isMissionFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var report LoadReport
	for _, name := range names {
		path := filepath.Join(clean, name)
		m, err := loadFile(path)
		if err != nil {
			logger.Log.Printf("[Registry] skipping %s: %v", path, err)
			report.Skipped = append(report.Skipped, ParseIssue{Path: path, Reason: err.Error()})
			continue
		}
		report.Missions = append(report.Missions, m)
	}
	return report, nil
}

func loadFile(path string) (Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mission{}, fmt.Errorf("read %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := Parse(data, stem)
	if err != nil {
		return Mission{}, err
	}
	m.Source = path
	return m, nil
}

// Parse decodes one definition document. Non-mapping documents become an
// empty mission identified by defaultID.
func Parse(data []byte, defaultID string) (Mission, error) {
	var doc any
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Mission{}, fmt.Errorf("decode mission yaml: %w", err)
		}
	}
	fields, _ := doc.(map[string]any)
	if fields == nil {
		fields = map[string]any{}
	}

	m := Mission{
		ID:       utils.StringField(fields, "mission_id"),
		Title:    utils.StringField(fields, "title"),
		Status:   utils.StringField(fields, "status"),
		RiskTier: utils.StringField(utils.MapField(fields, "risk"), "tier"),
		Priority: DefaultPriority,
		Goal:     utils.FirstNonEmpty(fields, "goal", "description"),
		Fields:   fields,
	}
	if m.ID == "" {
		m.ID = defaultID
	}
	if p, ok := utils.IntField(fields, "priority"); ok {
		m.Priority = p
	}
	if raw, ok := fields["repos"].([]any); ok {
		for _, entry := range raw {
			m.Repos = append(m.Repos, parseRepo(entry))
		}
	}
	return m, nil
}

func parseRepo(entry any) Repo {
	fields := utils.MapField(map[string]any{"repo": entry}, "repo")
	if fields == nil {
		return Repo{}
	}
	return Repo{Name: utils.StringField(fields, "name"), Fields: fields}
}

const missionFilePrefix = "NM-"

func isMissionFile(name string) bool {
	if !strings.HasPrefix(name, missionFilePrefix) {
		return false
	}
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
