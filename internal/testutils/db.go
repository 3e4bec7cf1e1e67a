package testutils

import (
	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// NewTestRecordID creates a random record id in table.
func NewTestRecordID(table string) *surrealmodels.RecordID {
	id := surrealmodels.NewRecordID(table, uuid.NewString())
	return &id
}

// NewTestUserID returns a random users record id in its "table:id" form.
func NewTestUserID() string {
	return "users:" + uuid.NewString()
}
