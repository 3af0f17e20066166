package refcheck

import (
	"github.com/ghetzel/refcheck/backends"
	"github.com/ghetzel/refcheck/dal"
)

// Connect to the backend described by the given connection string (e.g.: "memory://",
// "mongodb://localhost/app") and return a database whose collections check their references.
func NewDatabase(connection string) (DB, error) {
	if cs, err := dal.ParseConnectionString(connection); err == nil {
		if backend, err := backends.MakeBackend(cs); err == nil {
			if err := backend.Initialize(); err == nil {
				return newdb(backend), nil
			} else {
				return nil, err
			}
		} else {
			return nil, err
		}
	} else {
		return nil, err
	}
}
