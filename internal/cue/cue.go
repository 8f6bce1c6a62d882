package cue

import "strings"

// Provenance is the confidence and source recorded alongside a field value.
type Provenance struct {
	Confidence float64
	Source     Source
}

type Status int

const (
	StatusPending Status = iota
	StatusNeedsApproval
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusNeedsApproval:
		return "needs_approval"
	default:
		return "pending"
	}
}

func ParseStatus(value string) Status {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "complete":
		return StatusComplete
	case "needs_approval":
		return StatusNeedsApproval
	default:
		return StatusPending
	}
}

// Cue is one track record. Values and provenance live in fixed arrays keyed
// by Field, so a Cue copied by value is a full, independent copy.
type Cue struct {
	ID         string
	OrderIndex int
	Hidden     bool
	Status     Status

	values [fieldCount]string
	prov   [fieldCount]Provenance
}

// New returns an empty cue with the given id. Empty fields start as
// user-entered with full confidence.
func New(id string) Cue {
	c := Cue{ID: id}
	for f := Field(0); f < fieldCount; f++ {
		c.prov[f] = Provenance{Confidence: 1, Source: SourceUser}
	}
	c.Status = DeriveStatus(c)
	return c
}

func (c Cue) Value(f Field) string {
	if !f.Valid() {
		return ""
	}
	return c.values[f]
}

func (c Cue) Provenance(f Field) Provenance {
	if !f.Valid() {
		return Provenance{}
	}
	return c.prov[f]
}

func (c Cue) Confidence(f Field) float64 {
	return c.Provenance(f).Confidence
}

func (c Cue) Source(f Field) Source {
	return c.Provenance(f).Source
}

// Set writes a value together with its provenance and re-derives Status.
// It is the only way to change a field.
func (c *Cue) Set(f Field, value string, source Source, confidence float64) {
	if !f.Valid() {
		return
	}
	c.values[f] = value
	c.prov[f] = Provenance{Confidence: clampConfidence(confidence), Source: source}
	c.Status = DeriveStatus(*c)
}

// Equal compares every stored attribute, including provenance.
func (c Cue) Equal(other Cue) bool {
	return c == other
}

// NeedsApproval reports whether some filled field holds a value with less
// than full confidence that no person has confirmed yet.
func (c Cue) NeedsApproval() bool {
	return len(c.UnapprovedFields()) > 0
}

func (c Cue) UnapprovedFields() []Field {
	var out []Field
	for f := Field(0); f < fieldCount; f++ {
		if strings.TrimSpace(c.values[f]) == "" {
			continue
		}
		p := c.prov[f]
		if p.Confidence < 1 && !p.Source.Approved() {
			out = append(out, f)
		}
	}
	return out
}

// DisplayStatus refines Status for presentation: a complete cue that still
// carries unconfirmed predictions shows as needs_approval.
func (c Cue) DisplayStatus() Status {
	if c.Status == StatusComplete && c.NeedsApproval() {
		return StatusNeedsApproval
	}
	return c.Status
}

// DeriveStatus is complete exactly when composer and publisher are both
// non-empty, and pending otherwise. Whitespace is a value.
func DeriveStatus(c Cue) Status {
	if c.values[FieldComposer] == "" || c.values[FieldPublisher] == "" {
		return StatusPending
	}
	return StatusComplete
}

func clampConfidence(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Clone copies a row list; each Cue is a value so the copy shares nothing.
func Clone(rows []Cue) []Cue {
	if rows == nil {
		return nil
	}
	out := make([]Cue, len(rows))
	copy(out, rows)
	return out
}

// EqualRows compares two row lists element by element.
func EqualRows(a, b []Cue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
