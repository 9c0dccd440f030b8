package mission

const (
	DefaultPriority = 50
	StatusReady     = "ready"
	TierAutomatic   = "L1"
)

// Repo is one target repository descriptor. Entries that were not mappings in
// the source document keep an empty Name.
type Repo struct {
	Name   string
	Fields map[string]any
}

// Mission is a parsed definition. It is never mutated after Load.
type Mission struct {
	ID       string
	Title    string
	Status   string
	RiskTier string
	Priority int
	Goal     string
	Repos    []Repo
	Fields   map[string]any
	Source   string
}

// RepoNames lists the names of every descriptor that has one.
func (m Mission) RepoNames() []string {
	var names []string
	for _, r := range m.Repos {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	return names
}

// ParseIssue records a definition that was skipped and why.
type ParseIssue struct {
	Path   string
	Reason string
}

type LoadReport struct {
	Missions []Mission
	Skipped  []ParseIssue
}
