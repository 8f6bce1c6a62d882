package store

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/session"
)

// DefaultLookupLimit caps the candidates returned per row.
const DefaultLookupLimit = 3

// PatternProvider proposes values for empty fields from what earlier
// projects recorded for the same artist, or failing that the same source.
type PatternProvider struct {
	store *Store
	limit int
	group singleflight.Group
}

func NewPatternProvider(s *Store, limit int) *PatternProvider {
	if limit <= 0 {
		limit = DefaultLookupLimit
	}
	return &PatternProvider{store: s, limit: limit}
}

type candidate struct {
	value string
	count int
}

type lookup struct {
	candidates []candidate
	total      int
}

// Suggest implements session.SuggestionProvider. Rows with neither an
// artist nor a source get no candidates.
func (p *PatternProvider) Suggest(ctx context.Context, req session.SuggestionRequest) ([]session.Suggestion, error) {
	if p == nil || p.store == nil || p.store.db == nil {
		return nil, session.ErrNoBackingStore
	}
	var out []session.Suggestion
	for _, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for _, key := range []cue.Field{cue.FieldArtist, cue.FieldSource} {
			keyValue := strings.TrimSpace(row.Values[key])
			if keyValue == "" || key == req.Field {
				continue
			}
			res, err := p.lookup(ctx, req.ProjectID, req.Field, key, keyValue)
			if err != nil {
				return out, err
			}
			if len(res.candidates) == 0 {
				continue
			}
			for _, c := range res.candidates {
				out = append(out, session.Suggestion{
					RowID:      row.RowID,
					Field:      req.Field,
					Value:      c.value,
					Confidence: float64(c.count) / float64(res.total),
					Source:     cue.SourcePattern,
					Reasoning: fmt.Sprintf("%d of %d earlier cues with %s **%s** use this %s.",
						c.count, res.total, strings.ToLower(key.Title()), keyValue, strings.ToLower(req.Field.Title())),
				})
			}
			break
		}
	}
	return out, nil
}

// lookup counts the values of target among stored cues whose key field
// equals keyValue, outside the requesting project. Identical concurrent
// lookups share one query.
func (p *PatternProvider) lookup(ctx context.Context, projectID string, target, key cue.Field, keyValue string) (lookup, error) {
	id := strings.Join([]string{projectID, target.Key(), key.Key(), strings.ToLower(keyValue)}, "\x00")
	v, err, _ := p.group.Do(id, func() (interface{}, error) {
		rows, err := p.store.db.QueryContext(ctx, `SELECT t.value, COUNT(*) AS n
			FROM cue_fields k
			JOIN cue_fields t ON t.project_id = k.project_id AND t.cue_id = k.cue_id AND t.field = ?
			WHERE k.field = ? AND LOWER(k.value) = LOWER(?) AND t.value != '' AND k.project_id != ?
			GROUP BY t.value
			ORDER BY n DESC, t.value ASC`,
			target.Key(), key.Key(), keyValue, projectID)
		if err != nil {
			return lookup{}, err
		}
		defer rows.Close()
		var res lookup
		for rows.Next() {
			var c candidate
			if err := rows.Scan(&c.value, &c.count); err != nil {
				return lookup{}, err
			}
			res.total += c.count
			if len(res.candidates) < p.limit {
				res.candidates = append(res.candidates, c)
			}
		}
		return res, rows.Err()
	})
	if err != nil {
		return lookup{}, fmt.Errorf("pattern lookup: %w", err)
	}
	return v.(lookup), nil
}
