package qos

import (
	"fmt"
	"strings"
)

// Compatibility grades a publisher/subscription profile pairing
type Compatibility int

// Compatibility values
const (
	// CompatibilityOK means samples will flow
	CompatibilityOK Compatibility = iota
	// CompatibilityWarning means samples may flow but the pairing is suspect
	CompatibilityWarning
	// CompatibilityError means samples will not flow
	CompatibilityError
)

// String returns the string representation of Compatibility
func (c Compatibility) String() string {
	switch c {
	case CompatibilityOK:
		return "ok"
	case CompatibilityWarning:
		return "warning"
	case CompatibilityError:
		return "error"
	default:
		return "unknown"
	}
}

// CheckCompatible is a pure function grading whether a subscription with
// profile sub would receive samples from a publisher with profile pub.
// The reason concatenates one human-readable sentence per finding;
// it is empty when the pairing is clean.
func CheckCompatible(pub, sub Profile) (Compatibility, string) {
	var reasons []string
	result := CompatibilityOK

	note := func(c Compatibility, format string, args ...any) {
		if c > result {
			result = c
		}
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	if pub.Reliability == ReliabilityBestEffort && sub.Reliability == ReliabilityReliable {
		note(CompatibilityError,
			"ERROR: Best effort publisher and reliable subscription;")
	}

	if pub.Durability == DurabilityVolatile && sub.Durability == DurabilityTransientLocal {
		note(CompatibilityError,
			"ERROR: Volatile publisher and transient local subscription;")
	}

	pubDeadline, subDeadline := pub.Deadline, sub.Deadline
	if !subDeadline.IsUnspecified() && !subDeadline.IsInfinite() {
		switch {
		case pubDeadline.IsUnspecified() || pubDeadline.IsInfinite():
			note(CompatibilityError,
				"ERROR: Subscription has a deadline, but publisher does not;")
		case subDeadline.Nanos() < pubDeadline.Nanos():
			note(CompatibilityError,
				"ERROR: Subscription deadline is less than publisher deadline;")
		}
	}

	if pub.Liveliness == LivelinessAutomatic && sub.Liveliness == LivelinessManualByTopic {
		note(CompatibilityError,
			"ERROR: Publisher's liveliness is automatic and subscription's is manual by topic;")
	}

	subLease := sub.LivelinessLease
	if !subLease.IsUnspecified() && !subLease.IsInfinite() {
		pubLease := pub.LivelinessLease
		switch {
		case pubLease.IsUnspecified() || pubLease.IsInfinite():
			note(CompatibilityError,
				"ERROR: Subscription has a liveliness lease duration, but publisher does not;")
		case subLease.Nanos() < pubLease.Nanos():
			note(CompatibilityError,
				"ERROR: Subscription liveliness lease duration is less than publisher;")
		}
	}

	if pub.Lifespan != sub.Lifespan {
		note(CompatibilityWarning,
			"WARNING: Publisher and subscription lifespans do not match;")
	}

	for _, w := range unknownOrDefaultWarnings(pub, "publisher") {
		note(CompatibilityWarning, "%s", w)
	}
	for _, w := range unknownOrDefaultWarnings(sub, "subscription") {
		note(CompatibilityWarning, "%s", w)
	}

	return result, strings.Join(reasons, " ")
}

func unknownOrDefaultWarnings(p Profile, side string) []string {
	var out []string
	check := func(policy string, unknown, systemDefault bool) {
		if unknown {
			out = append(out,
				fmt.Sprintf("WARNING: %s %s is unknown;", side, policy))
		} else if systemDefault {
			out = append(out,
				fmt.Sprintf("WARNING: %s %s is system default;", side, policy))
		}
	}

	check("reliability", p.Reliability == ReliabilityUnknown, p.Reliability == ReliabilitySystemDefault)
	check("durability", p.Durability == DurabilityUnknown, p.Durability == DurabilitySystemDefault)
	check("liveliness", p.Liveliness == LivelinessUnknown, p.Liveliness == LivelinessSystemDefault)
	return out
}
