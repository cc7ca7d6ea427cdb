package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearPolicyEnv(t *testing.T) {
	for _, key := range []string{
		"APPROVAL_TERMINAL_IMPACT_LEVELS",
		"APPROVAL_MAX_CHAIN_LENGTH",
		"APPROVAL_POC_EMAILS",
		"NOTIFICATION_OVERRIDE_RECIPIENT",
		"NOTIFICATION_CHANNELS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadApprovalPolicyDefaults(t *testing.T) {
	clearPolicyEnv(t)

	policy, err := LoadApprovalPolicy("")
	require.NoError(t, err)

	assert.True(t, policy.Approval.IsTerminalLevel("3A"))
	assert.True(t, policy.Approval.IsTerminalLevel(" 3c "))
	assert.False(t, policy.Approval.IsTerminalLevel("4A"))
	assert.Equal(t, 10, policy.Approval.MaxChainLength())
	assert.Equal(t, []string{"inbox", "log", "stream"}, policy.Notification.Channels)
	assert.Empty(t, policy.Notification.OverrideRecipient)
}

func TestLoadApprovalPolicyFromFile(t *testing.T) {
	clearPolicyEnv(t)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
approval:
  terminal_impact_levels: ["2A", "2B"]
  max_chain_length: 4
  poc_emails:
    - travel@example.com
notification:
  override_recipient: qa@example.com
  channels: [log]
`), 0o600))

	policy, err := LoadApprovalPolicy(path)
	require.NoError(t, err)

	assert.True(t, policy.Approval.IsTerminalLevel("2b"))
	assert.False(t, policy.Approval.IsTerminalLevel("3A"))
	assert.Equal(t, 4, policy.Approval.MaxChainLength())
	assert.True(t, policy.Approval.IsPOCEmail("Travel@Example.com"))
	assert.Equal(t, "qa@example.com", policy.Notification.OverrideRecipient)
	assert.Equal(t, []string{"log"}, policy.Notification.Channels)
}

func TestLoadApprovalPolicyEnvOverride(t *testing.T) {
	clearPolicyEnv(t)
	t.Setenv("APPROVAL_TERMINAL_IMPACT_LEVELS", "5A, 5B")
	t.Setenv("APPROVAL_POC_EMAILS", "poc@example.com")

	policy, err := LoadApprovalPolicy("")
	require.NoError(t, err)

	assert.True(t, policy.Approval.IsTerminalLevel("5B"))
	assert.False(t, policy.Approval.IsTerminalLevel("3A"))
	assert.True(t, policy.Approval.IsPOCEmail("poc@example.com"))
}

func TestLoadApprovalPolicyCapsChainLength(t *testing.T) {
	clearPolicyEnv(t)
	t.Setenv("APPROVAL_MAX_CHAIN_LENGTH", "50")

	policy, err := LoadApprovalPolicy("")
	require.NoError(t, err)
	assert.Equal(t, 10, policy.Approval.MaxChainLength())
}

func TestLoadApprovalPolicyInvalidFile(t *testing.T) {
	clearPolicyEnv(t)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("approval: [unclosed"), 0o600))

	_, err := LoadApprovalPolicy(path)
	assert.Error(t, err)
}
