package scenario

import "strings"

// Posture is a named bias applied uniformly to every action of a run.
type Posture string

const (
	Optimistic  Posture = "optimistic"
	Realistic   Posture = "realistic"
	Pessimistic Posture = "pessimistic"
)

// ParsePosture accepts the posture names case-insensitively.
func ParsePosture(s string) (Posture, error) {
	switch p := Posture(strings.ToLower(strings.TrimSpace(s))); p {
	case Optimistic, Realistic, Pessimistic:
		return p, nil
	default:
		return "", &UnknownPostureError{Posture: s}
	}
}

// ParsePostures parses a list, dropping duplicates and keeping first-seen order.
// An empty list yields [realistic].
func ParsePostures(names []string) ([]Posture, error) {
	if len(names) == 0 {
		return []Posture{Realistic}, nil
	}
	out := make([]Posture, 0, len(names))
	seen := make(map[Posture]struct{}, len(names))
	for _, n := range names {
		p, err := ParsePosture(n)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// Bias is the probability shift applied for the posture given the configured
// magnitude.
func (p Posture) Bias(magnitude float64) float64 {
	switch p {
	case Optimistic:
		return magnitude
	case Pessimistic:
		return -magnitude
	default:
		return 0
	}
}
