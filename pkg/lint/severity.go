package lint

import (
	"strings"

	"github.com/pkg/errors"
)

// Severity ranks findings. Higher values are more severe.
type Severity int

const (
	// SeverityInfo is advisory
	SeverityInfo Severity = iota
	// SeverityWarning should be fixed but does not break skill hosts
	SeverityWarning
	// SeverityError breaks loading or the integrity of the skill
	SeverityError
)

var severityNames = map[Severity]string{
	SeverityInfo:    "info",
	SeverityWarning: "warning",
	SeverityError:   "error",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSeverity parses error, warning (or warn) and info, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	default:
		return 0, errors.Errorf("unknown severity %q (want error, warning or info)", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
