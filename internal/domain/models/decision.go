package models

import "strings"

// Decision is the routing outcome attached to a scored transaction.
type Decision string

const (
	DecisionApprove        Decision = "APPROVE"
	DecisionAbstain        Decision = "ABSTAIN"
	DecisionStepUpAuth     Decision = "STEP_UP_AUTH"
	DecisionEscalateInvest Decision = "ESCALATE_INVEST"
	DecisionDecline        Decision = "DECLINE"
)

// Decisions lists the known decisions in landscape order.
var Decisions = []Decision{
	DecisionApprove,
	DecisionAbstain,
	DecisionStepUpAuth,
	DecisionEscalateInvest,
	DecisionDecline,
}

// Known reports whether d is one of the five routing decisions.
func (d Decision) Known() bool {
	switch d {
	case DecisionApprove, DecisionAbstain, DecisionStepUpAuth, DecisionEscalateInvest, DecisionDecline:
		return true
	}
	return false
}

// ShortLabel is the compact zone label drawn on the landscape.
func (d Decision) ShortLabel() string {
	switch d {
	case DecisionStepUpAuth:
		return "STEP-UP"
	case DecisionEscalateInvest:
		return "ESCALATE"
	}
	return string(d)
}

// ParseDecision normalizes s. Unknown labels are kept as-is so they can
// still be plotted with the neutral color.
func ParseDecision(s string) Decision {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "STEP_UP", "STEPUP", "STEP-UP":
		return DecisionStepUpAuth
	case "ESCALATE", "ESCALATE-INVEST":
		return DecisionEscalateInvest
	}
	return Decision(v)
}

// Theme selects the landscape color table.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme maps anything other than "light" to dark.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeLight)) {
		return ThemeLight
	}
	return ThemeDark
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}
