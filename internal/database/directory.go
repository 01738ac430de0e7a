package database

import "github.com/jmoiron/sqlx"

// Directory bundles the forecaster and channel read paths the orchestrator
// fans out over.
type Directory struct {
	*ForecasterRepository
	*ChannelRepository
}

// NewDirectory creates a directory over the given connection pool.
func NewDirectory(db *sqlx.DB) *Directory {
	return &Directory{
		ForecasterRepository: NewForecasterRepository(db),
		ChannelRepository:    NewChannelRepository(db),
	}
}
