package types

import "fmt"

// Status is the lifecycle state of a record. The glyph written to the
// table is a serialization detail owned by the table codec.
type Status int

// Record states.
const (
	StatusUnknown Status = iota
	StatusOpen
	StatusClaimed
	StatusPartial // done once, but a dependency is no longer satisfied
	StatusBlocked
	StatusDone
	StatusBroken
	StatusReview
	StatusRejected
)

var statusNames = map[Status]string{
	StatusUnknown:  "unknown",
	StatusOpen:     "open",
	StatusClaimed:  "claimed",
	StatusPartial:  "partial",
	StatusBlocked:  "blocked",
	StatusDone:     "done",
	StatusBroken:   "broken",
	StatusReview:   "review",
	StatusRejected: "rejected",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText writes the status by name, so JSON output reads "done"
// rather than a number.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name written by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for st, name := range statusNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Priority is the urgency of a record.
type Priority int

// Priorities, most urgent first.
const (
	PrioUnknown Priority = iota
	PrioHigh
	PrioMedium
	PrioLow
)

var prioNames = map[Priority]string{
	PrioUnknown: "unknown",
	PrioHigh:    "high",
	PrioMedium:  "medium",
	PrioLow:     "low",
}

func (p Priority) String() string {
	if name, ok := prioNames[p]; ok {
		return name
	}
	return "unknown"
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	for pr, name := range prioNames {
		if name == string(text) {
			*p = pr
			return nil
		}
	}
	return fmt.Errorf("unknown priority %q", text)
}

// MVP marks whether a record belongs to the minimum viable product.
type MVP int

// MVP values.
const (
	MVPUnknown MVP = iota
	MVPYes
	MVPNo
)

func (m MVP) String() string {
	switch m {
	case MVPYes:
		return "yes"
	case MVPNo:
		return "no"
	default:
		return "unknown"
	}
}

func (m MVP) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MVP) UnmarshalText(text []byte) error {
	for _, v := range []MVP{MVPUnknown, MVPYes, MVPNo} {
		if v.String() == string(text) {
			*m = v
			return nil
		}
	}
	return fmt.Errorf("unknown mvp %q", text)
}
