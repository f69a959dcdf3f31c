package domain

import "time"

// DecisionInput identifies a single authorization question sent to the
// policy engine.
type DecisionInput struct {
	User     string `json:"user"`
	Tenant   string `json:"tenant"`
	Action   string `json:"action"`
	Resource string `json:"resource,omitempty"`
}

// DecisionResult is the policy engine's answer for one DecisionInput, or a
// locally synthesized denial.
type DecisionResult struct {
	Allow     bool     `json:"allow"`
	User      string   `json:"user"`
	Action    string   `json:"action"`
	Resource  string   `json:"resource,omitempty"`
	UserRoles []string `json:"user_roles"`
	Reason    string   `json:"reason"`
}

// DecisionResponse is the engine's evaluation envelope. Result is nil when the
// policy produced no decision for the input.
type DecisionResponse struct {
	Result *DecisionResult `json:"result,omitempty"`
}

// Deny builds the canonical fail-closed result for input.
func Deny(input DecisionInput, reason string) DecisionResult {
	return DecisionResult{
		Allow:     false,
		User:      input.User,
		Action:    input.Action,
		Resource:  input.Resource,
		UserRoles: []string{},
		Reason:    reason,
	}
}

// DebugEntry is one recorded decision call. Entries are never mutated after
// they are recorded.
type DebugEntry struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	Input      DecisionInput    `json:"input"`
	Response   DecisionResponse `json:"response"`
	DurationMS int64            `json:"duration_ms"`
}

// Allowed reports whether the recorded response granted access.
func (e DebugEntry) Allowed() bool {
	return e.Response.Result != nil && e.Response.Result.Allow
}
