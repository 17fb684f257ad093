package security

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RiskLevel grades an allowed or denied command.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Decision is the outcome of validating one command line.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	RiskLevel RiskLevel `json:"risk_level"`
	Reason    string    `json:"reason,omitempty"`
}

// Policy configures a Validator. Patterns are doublestar globs.
type Policy struct {
	Blocked          []string
	Allowed          []string
	MaxCommandLength int
}

// Validator checks command lines against a Policy. It is immutable and safe
// for concurrent use.
type Validator struct {
	blocked []string
	allowed []string
	maxLen  int
}

// riskyVerbs are allowed but graded medium.
var riskyVerbs = map[string]bool{
	"sudo":    true,
	"su":      true,
	"doas":    true,
	"chmod":   true,
	"chown":   true,
	"kill":    true,
	"killall": true,
	"pkill":   true,
	"rm":      true,
	"dd":      true,
}

// shells are the interpreters that make "curl ... | sh" risky.
var shells = map[string]bool{
	"sh":   true,
	"bash": true,
	"zsh":  true,
	"dash": true,
}

// NewValidator compiles a policy, rejecting malformed patterns.
func NewValidator(p Policy) (*Validator, error) {
	for _, pattern := range append(append([]string{}, p.Blocked...), p.Allowed...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid command pattern %q", pattern)
		}
	}
	return &Validator{
		blocked: append([]string(nil), p.Blocked...),
		allowed: append([]string(nil), p.Allowed...),
		maxLen:  p.MaxCommandLength,
	}, nil
}

// Validate decides whether command may run.
func (v *Validator) Validate(command string) Decision {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Decision{Allowed: false, RiskLevel: RiskLow, Reason: "empty command"}
	}
	if v.maxLen > 0 && len(command) > v.maxLen {
		return Decision{
			Allowed:   false,
			RiskLevel: RiskMedium,
			Reason:    fmt.Sprintf("command exceeds %d characters", v.maxLen),
		}
	}

	segments := Segments(trimmed)

	if pattern, ok := v.match(v.blocked, trimmed, segments, true); ok {
		return Decision{Allowed: false, RiskLevel: RiskHigh, Reason: fmt.Sprintf("matches blocked pattern %q", pattern)}
	}

	if len(v.allowed) > 0 {
		for _, seg := range segments {
			if _, ok := v.match(v.allowed, "", []string{seg}, false); !ok {
				return Decision{
					Allowed:   false,
					RiskLevel: RiskMedium,
					Reason:    fmt.Sprintf("%q is not in the allow list", executable(seg)),
				}
			}
		}
	}

	if reason := risky(segments); reason != "" {
		return Decision{Allowed: true, RiskLevel: RiskMedium, Reason: reason}
	}
	return Decision{Allowed: true, RiskLevel: RiskLow}
}

// match reports the first pattern matching the full command (when
// whole is true) or any segment, its executable, or the executable's
// basename.
func (v *Validator) match(patterns []string, full string, segments []string, whole bool) (string, bool) {
	for _, pattern := range patterns {
		if whole && globMatch(pattern, full) {
			return pattern, true
		}
		for _, seg := range segments {
			exe := executable(seg)
			if globMatch(pattern, seg) || globMatch(pattern, exe) || globMatch(pattern, path.Base(exe)) {
				return pattern, true
			}
		}
	}
	return "", false
}

func globMatch(pattern, s string) bool {
	ok, err := doublestar.Match(pattern, s)
	return err == nil && ok
}

func risky(segments []string) string {
	for i, seg := range segments {
		exe := path.Base(executable(seg))
		if riskyVerbs[exe] {
			return fmt.Sprintf("%s can modify system state", exe)
		}
		if i > 0 && shells[exe] {
			return "pipes output into a shell"
		}
	}
	return ""
}

// Segments splits a command line on ; | & and newlines, dropping empty
// pieces. Quoting is not interpreted, so separators inside quotes also split;
// that errs towards checking more segments.
func Segments(command string) []string {
	parts := strings.FieldsFunc(command, func(r rune) bool {
		switch r {
		case ';', '|', '&', '\n':
			return true
		}
		return false
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// executable returns the first word of a segment, skipping leading
// VAR=value assignments.
func executable(segment string) string {
	fields := strings.Fields(segment)
	for _, f := range fields {
		if strings.Contains(f, "=") && !strings.HasPrefix(f, "=") && !strings.Contains(f, "/") {
			continue
		}
		return f
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// ErrDenied is returned by callers that refuse a command after validation.
var ErrDenied = errors.New("command denied")

// Err returns nil for allowed decisions and ErrDenied with the reason
// otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s (risk %s)", ErrDenied, d.Reason, d.RiskLevel)
}
