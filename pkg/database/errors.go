package database

import (
	"strings"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/lib/pq"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict("a row with this number already exists")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Invalid datetime or text representation (22007, 22P02)
	case "22007", "22P02":
		return errors.BadRequest("value has the wrong format for its column")

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.HasSuffix(constraint, "row_positive"):
		return errors.Validation(map[string]string{
			"row": "must be below the header row",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}
