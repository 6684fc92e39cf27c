package db

import (
	"errors"

	"github.com/lib/pq"
)

// isErrorUniqueViolation reports a duplicate primary key, which for event
// inserts means the event was delivered again.
func isErrorUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Name() == "unique_violation"
}
