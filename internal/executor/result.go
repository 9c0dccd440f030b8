package executor

import "encoding/json"

// Result is the uniform outcome every executor returns. Extra holds
// executor-specific fields such as committed, pushed or version_file.
type Result struct {
	Mission string
	Repo    string
	Branch  string
	Success bool
	Message string
	Skipped bool
	Reason  string
	Extra   map[string]any
}

// Skip builds the single record returned for a mission that never ran.
func Skip(missionID, reason string) Result {
	return Result{Mission: missionID, Skipped: true, Reason: reason}
}

func (r *Result) set(key string, v any) {
	if r.Extra == nil {
		r.Extra = map[string]any{}
	}
	r.Extra[key] = v
}

// Fields flattens r into the record shape written to results files. Core keys
// win over Extra keys with the same name.
func (r Result) Fields() map[string]any {
	out := make(map[string]any, len(r.Extra)+7)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["mission"] = r.Mission
	out["success"] = r.Success
	if r.Skipped {
		out["skipped"] = true
		out["reason"] = r.Reason
		return out
	}
	out["repo"] = r.Repo
	out["branch"] = r.Branch
	out["message"] = r.Message
	return out
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}
