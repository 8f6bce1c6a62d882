package session

import (
	"context"

	"github.com/bekirdag/cuesheet/internal/cue"
)

// ProjectInfo is the sheet-level metadata of a project.
type ProjectInfo struct {
	Name       string
	Production string
	Episode    string
	AirDate    string
	Notes      string
}

// Payload is what the backing store loads and saves for one project.
type Payload struct {
	Info ProjectInfo
	Rows []cue.Cue
}

// BackingStore persists projects. Implementations decide the format.
type BackingStore interface {
	LoadDocument(ctx context.Context, projectID string) (Payload, error)
	SaveDocument(ctx context.Context, projectID string, payload Payload) error
}

// RowRef identifies a row missing the requested field, with the context a
// provider needs to guess it.
type RowRef struct {
	RowID  string
	Values map[cue.Field]string
}

// SuggestionRequest asks a provider for candidate values of one field.
type SuggestionRequest struct {
	TabID     string
	ProjectID string
	Field     cue.Field
	Rows      []RowRef
}

// Suggestion is one ranked candidate for a row's field. It is applied only
// when the user picks it.
type Suggestion struct {
	RowID      string
	Field      cue.Field
	Value      string
	Confidence float64
	Source     cue.Source
	Reasoning  string
}

type SuggestionProvider interface {
	Suggest(ctx context.Context, req SuggestionRequest) ([]Suggestion, error)
}

// Annotation is a colour and note attached to a set of rows, independent of
// the cell selection.
type Annotation struct {
	ID     string
	RowIDs []string
	Color  string
	Note   string
}

type AnnotationStore interface {
	Annotate(ctx context.Context, projectID string, a Annotation) error
	Annotations(ctx context.Context, projectID string) ([]Annotation, error)
}

// ExportPayload is the view handed to exporters: visible rows only.
type ExportPayload struct {
	ProjectID string
	Info      ProjectInfo
	Rows      []cue.Cue
}

type Exporter interface {
	Export(ctx context.Context, payload ExportPayload) error
}

// SelectionListener receives the finalized selection at the end of every
// selection gesture.
type SelectionListener interface {
	SelectionFinalized(tabID string, fin Finalized)
}

// SelectionListenerFunc adapts a function to SelectionListener.
type SelectionListenerFunc func(tabID string, fin Finalized)

func (f SelectionListenerFunc) SelectionFinalized(tabID string, fin Finalized) {
	f(tabID, fin)
}
