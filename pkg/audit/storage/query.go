package storage

import (
	"errors"
	"sort"
	"strings"

	"formarter/compliance/pkg/audit"
)

// selectRecords filters, sorts and paginates records in memory the same
// way the SQLite backend does in SQL.
func selectRecords(records []*audit.Record, query *audit.Query) ([]*audit.Record, error) {
	if query == nil {
		query = &audit.Query{}
	}
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	out := []*audit.Record{}
	for _, rec := range records {
		if query.Matches(rec) {
			out = append(out, rec)
		}
	}

	asc := strings.EqualFold(query.SortOrder, "asc")
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if asc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if asc {
			return a.SessionID < b.SessionID
		}
		return a.SessionID > b.SessionID
	})

	if query.Offset > 0 {
		if query.Offset >= len(out) {
			return []*audit.Record{}, nil
		}
		out = out[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(out) {
		out = out[:query.Limit]
	}
	return out, nil
}

func validateQuery(query *audit.Query) error {
	if query.StartTime != nil && query.EndTime != nil && query.EndTime.Before(*query.StartTime) {
		return audit.NewQueryError(query, errors.New("end_time is before start_time"))
	}
	if query.MinScore != nil && query.MaxScore != nil && *query.MaxScore < *query.MinScore {
		return audit.NewQueryError(query, errors.New("max_score is below min_score"))
	}
	return nil
}

// latest returns the newest record of documentID, or nil.
func latest(records []*audit.Record, documentID string) *audit.Record {
	found, err := selectRecords(records, &audit.Query{DocumentID: documentID, Limit: 1})
	if err != nil || len(found) == 0 {
		return nil
	}
	return found[0]
}
