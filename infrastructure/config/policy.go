package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tripdesk/tripdesk/domain/valueobject"
)

// PolicyConfig is the approval and notification policy, loaded once at startup.
type PolicyConfig struct {
	Approval     valueobject.ApprovalPolicy
	Notification NotificationPolicy
}

type NotificationPolicy struct {
	OverrideRecipient string
	Channels          []string
}

// LoadApprovalPolicy reads an optional YAML policy file. Environment variables
// such as APPROVAL_TERMINAL_IMPACT_LEVELS override file values. An empty path
// means defaults plus environment.
func LoadApprovalPolicy(path string) (*PolicyConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setPolicyDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read approval policy: %w", err)
			}
		}
	}

	maxLen := v.GetInt("approval.max_chain_length")
	if maxLen <= 0 {
		return nil, fmt.Errorf("approval.max_chain_length must be positive, got %d", maxLen)
	}
	levels := stringList(v, "approval.terminal_impact_levels")
	if len(levels) == 0 {
		return nil, fmt.Errorf("approval.terminal_impact_levels must not be empty")
	}

	return &PolicyConfig{
		Approval: valueobject.NewApprovalPolicy(levels, maxLen, stringList(v, "approval.poc_emails")),
		Notification: NotificationPolicy{
			OverrideRecipient: strings.TrimSpace(v.GetString("notification.override_recipient")),
			Channels:          stringList(v, "notification.channels"),
		},
	}, nil
}

func setPolicyDefaults(v *viper.Viper) {
	v.SetDefault("approval.terminal_impact_levels", valueobject.DefaultTerminalImpactLevels)
	v.SetDefault("approval.max_chain_length", valueobject.DefaultMaxChainLength)
	v.SetDefault("approval.poc_emails", []string{})
	v.SetDefault("notification.override_recipient", "")
	v.SetDefault("notification.channels", []string{"inbox", "log", "stream"})
}

// stringList accepts a YAML list or a comma separated string from the environment.
func stringList(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case string:
		return parseList(raw)
	case []string:
		return cleanList(raw)
	case []interface{}:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			out = append(out, fmt.Sprint(item))
		}
		return cleanList(out)
	}
	return nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
