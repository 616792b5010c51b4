package executor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"sqljob/pkg/models"
)

// Policy maps exit statuses to outcomes by exact match.
// Pass is checked first, then Fail, then Crash; anything else gets Unmatched.
type Policy struct {
	Pass      []int
	Fail      []int
	Crash     []int
	Unmatched models.Outcome
}

// DefaultPolicy is the broad policy: 0 passes, 1 is an expected failure and
// every other status, including launch failures, is a crash.
func DefaultPolicy() Policy {
	return Policy{
		Pass:      []int{0},
		Fail:      []int{1},
		Unmatched: models.OutcomeCrash,
	}
}

// NarrowPolicy only counts the given statuses as crashes and leaves anything
// else unclassified.
func NarrowPolicy(crash ...int) Policy {
	return Policy{
		Pass:      []int{0},
		Fail:      []int{1},
		Crash:     crash,
		Unmatched: models.OutcomeUnclassified,
	}
}

// Classify returns the outcome for an exit status.
func (p Policy) Classify(status int) models.Outcome {
	switch {
	case slices.Contains(p.Pass, status):
		return models.OutcomeSuccess
	case slices.Contains(p.Fail, status):
		return models.OutcomeFailure
	case slices.Contains(p.Crash, status):
		return models.OutcomeCrash
	}
	if p.Unmatched == "" {
		return models.OutcomeCrash
	}
	return p.Unmatched
}

// Validate rejects policies where one status belongs to several sets.
func (p Policy) Validate() error {
	seen := make(map[int]string)
	for name, codes := range map[string][]int{"pass": p.Pass, "fail": p.Fail, "crash": p.Crash} {
		for _, c := range codes {
			if prev, ok := seen[c]; ok && prev != name {
				return fmt.Errorf("exit status %d is listed as both %s and %s", c, prev, name)
			}
			seen[c] = name
		}
	}
	switch p.Unmatched {
	case "", models.OutcomeCrash, models.OutcomeUnclassified, models.OutcomeFailure:
		return nil
	default:
		return fmt.Errorf("unsupported outcome %q for unmatched statuses", p.Unmatched)
	}
}

// ParseCodes parses a comma separated list of exit statuses. Blank input gives
// an empty list.
func ParseCodes(raw string) ([]int, error) {
	fields := strings.Split(raw, ",")
	codes := make([]int, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed == "" {
			continue
		}
		code, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid exit status %q: %w", trimmed, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// ParseUnmatched maps the configuration keyword for unmatched statuses.
func ParseUnmatched(raw string) (models.Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "crash":
		return models.OutcomeCrash, nil
	case "drop", "unclassified":
		return models.OutcomeUnclassified, nil
	case "fail", "failure":
		return models.OutcomeFailure, nil
	default:
		return "", fmt.Errorf("unknown unmatched policy %q (want crash, drop or fail)", raw)
	}
}
