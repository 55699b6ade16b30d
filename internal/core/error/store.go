package errx

import (
	"database/sql"
	"errors"
	"net/http"
)

// WrapStore maps database/sql errors from the SQLite store to AppError.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return New(err, http.StatusNotFound, StoreErrorMessage)
	}
	return New(err, http.StatusInternalServerError, StoreErrorMessage)
}
