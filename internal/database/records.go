package database

import (
	"fmt"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Table names of the profile bundle.
const (
	usersTable        = "users"
	picturesTable     = "pictures"
	ratesTable        = "rates"
	testimonialsTable = "testimonials"
	storiesTable      = "story"
	bookmarksTable    = "bookmarks"
)

// ParseRecordID splits a "table:id" string into a SurrealDB record id.
func ParseRecordID(id string) (surrealmodels.RecordID, error) {
	table, key, ok := strings.Cut(id, ":")
	if !ok || table == "" || key == "" {
		return surrealmodels.RecordID{}, NewDBError(ErrInvalidID, fmt.Sprintf("expected 'table:id', got %q", id))
	}
	return surrealmodels.NewRecordID(table, key), nil
}

// parseRecordIDIn is ParseRecordID restricted to one table, so a caller
// cannot point a mutation at a record of a different kind.
func parseRecordIDIn(table, id string) (surrealmodels.RecordID, error) {
	rid, err := ParseRecordID(id)
	if err != nil {
		return rid, err
	}
	if rid.Table != table {
		return rid, NewDBError(ErrInvalidID, fmt.Sprintf("expected a %s id, got %q", table, id))
	}
	return rid, nil
}

func recordIDString(rid *surrealmodels.RecordID) string {
	if rid == nil {
		return ""
	}
	return rid.String()
}

func dateTime(dt *surrealmodels.CustomDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	return dt.Time
}

func dateTimePtr(dt *surrealmodels.CustomDateTime) *time.Time {
	if dt == nil || dt.IsZero() {
		return nil
	}
	t := dt.Time
	return &t
}

func now() *surrealmodels.CustomDateTime {
	return &surrealmodels.CustomDateTime{Time: time.Now().UTC()}
}
