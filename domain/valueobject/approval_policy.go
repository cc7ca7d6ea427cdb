package valueobject

import "strings"

// DefaultMaxChainLength caps chain building against cyclic manager graphs.
const DefaultMaxChainLength = 10

// DefaultTerminalImpactLevels are the grades allowed to give the last manager
// sign-off before travel coordinator review.
var DefaultTerminalImpactLevels = []string{"3A", "3B", "3C"}

// ApprovalPolicy is loaded once at startup and passed to the chain builder.
type ApprovalPolicy struct {
	terminalLevels map[string]struct{}
	maxChainLength int
	pocEmails      map[string]struct{}
}

func NewApprovalPolicy(terminalLevels []string, maxChainLength int, pocEmails []string) ApprovalPolicy {
	if maxChainLength <= 0 || maxChainLength > DefaultMaxChainLength {
		maxChainLength = DefaultMaxChainLength
	}
	p := ApprovalPolicy{
		terminalLevels: make(map[string]struct{}, len(terminalLevels)),
		maxChainLength: maxChainLength,
		pocEmails:      make(map[string]struct{}, len(pocEmails)),
	}
	for _, level := range terminalLevels {
		if normalized := normalizeLevel(level); normalized != "" {
			p.terminalLevels[normalized] = struct{}{}
		}
	}
	for _, email := range pocEmails {
		if normalized := strings.ToLower(strings.TrimSpace(email)); normalized != "" {
			p.pocEmails[normalized] = struct{}{}
		}
	}
	return p
}

// DefaultApprovalPolicy uses {3A,3B,3C} and a chain cap of 10.
func DefaultApprovalPolicy() ApprovalPolicy {
	return NewApprovalPolicy(DefaultTerminalImpactLevels, DefaultMaxChainLength, nil)
}

// IsTerminalLevel compares trimmed, upper-cased grades.
func (p ApprovalPolicy) IsTerminalLevel(level string) bool {
	_, ok := p.terminalLevels[normalizeLevel(level)]
	return ok
}

func (p ApprovalPolicy) MaxChainLength() int {
	if p.maxChainLength <= 0 {
		return DefaultMaxChainLength
	}
	return p.maxChainLength
}

// TerminalLevels returns the configured grades in no particular order.
func (p ApprovalPolicy) TerminalLevels() []string {
	out := make([]string, 0, len(p.terminalLevels))
	for level := range p.terminalLevels {
		out = append(out, level)
	}
	return out
}

// IsPOCEmail reports whether email is listed as a travel coordinator.
func (p ApprovalPolicy) IsPOCEmail(email string) bool {
	_, ok := p.pocEmails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

func normalizeLevel(level string) string {
	return strings.ToUpper(strings.TrimSpace(level))
}
