package executor

// Kind selects the executor for a mission id.
type Kind int

const (
	KindUnknown Kind = iota
	KindVersionConstant
	KindSchedulerReadme
	KindMemoryProbe
)

var kindByMission = map[string]Kind{
	"NM-020": KindVersionConstant,
	"NM-011": KindSchedulerReadme,
	"NM-910": KindMemoryProbe,
}

func KindOf(missionID string) Kind {
	if k, ok := kindByMission[missionID]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindVersionConstant:
		return "version-constant"
	case KindSchedulerReadme:
		return "scheduler-readme"
	case KindMemoryProbe:
		return "memory-probe"
	default:
		return "unknown"
	}
}
