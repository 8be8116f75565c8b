package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/move-league/move-league-backend/internal/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
	ErrDuplicate       = errors.New("record already exists")
)

// Store is the read and write surface of the persistence gateway. Inside
// Gateway.WithinTx every call observes and joins the same transaction.
type Store interface {
	GetBattle(ctx context.Context, id string) (*models.Battle, error)
	CreateBattle(ctx context.Context, battle *models.Battle) error
	// UpdateBattle writes battle only if the stored version equals
	// expectedVersion, then sets battle.Version to expectedVersion+1.
	UpdateBattle(ctx context.Context, battle *models.Battle, expectedVersion int) error
	ListBattlesForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Battle, error)

	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error)
	GetStudio(ctx context.Context, id string) (*models.Studio, error)

	// AppendRatingEntries inserts ledger entries and moves each user's rating
	// by the entry delta with an atomic increment.
	AppendRatingEntries(ctx context.Context, entries []models.RatingEntry) error
	ListRatingEntries(ctx context.Context, battleID string) ([]models.RatingEntry, error)
	ListRatingEntriesForUser(ctx context.Context, userID string, limit int) ([]models.RatingEntry, error)

	CreateSeason(ctx context.Context, season *models.Season) error
}

// Gateway is a Store that can also run a unit of work atomically. When fn
// returns an error nothing it wrote is kept.
type Gateway interface {
	Store
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
