package service

import (
	"encoding/json"
	"strings"
)

// Verdict is the model's judgment for one checklist item.
type Verdict struct {
	IsCompliant     bool   `json:"is_compliant"`
	HasLoophole     bool   `json:"has_loophole"`
	ClauseReference string `json:"clause_reference"`
	Explanation     string `json:"explanation"`
	Recommendation  string `json:"recommendation"`
}

// ParseVerdict extracts the verdict JSON from a raw model response. Models
// wrap JSON in prose or markdown fences, so the outermost object between the
// first '{' and last '}' is what gets decoded. A false return is the normal
// malformed-response branch, not an error condition.
func ParseVerdict(raw string) (Verdict, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Verdict{}, false
	}

	var v Verdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return Verdict{}, false
	}
	return v, true
}
