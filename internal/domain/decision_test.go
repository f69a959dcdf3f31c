package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeny(t *testing.T) {
	input := DecisionInput{User: "user_1", Tenant: "tenant1", Action: "view_invoices_sales", Resource: "inv-7"}

	got := Deny(input, "policy engine error: boom")

	assert.False(t, got.Allow)
	assert.Equal(t, "user_1", got.User)
	assert.Equal(t, "view_invoices_sales", got.Action)
	assert.Equal(t, "inv-7", got.Resource)
	assert.Equal(t, "policy engine error: boom", got.Reason)

	// user_roles must serialize as [] rather than null for UI consumers
	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"user_roles":[]`)
}

func TestDebugEntryAllowed(t *testing.T) {
	assert.False(t, DebugEntry{}.Allowed(), "missing result counts as denied")
	assert.True(t, DebugEntry{Response: DecisionResponse{Result: &DecisionResult{Allow: true}}}.Allowed())
}
