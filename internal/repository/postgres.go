package repository

import (
	"context"
	"database/sql"

	"github.com/move-league/move-league-backend/pkg/database"
)

type pgStore struct {
	*BattleRepository
	*UserRepository
	*RatingRepository
	*SeasonRepository
}

func newPGStore(q querier) *pgStore {
	return &pgStore{
		BattleRepository: NewBattleRepository(q),
		UserRepository:   NewUserRepository(q),
		RatingRepository: NewRatingRepository(q),
		SeasonRepository: NewSeasonRepository(q),
	}
}

// PostgresGateway is the lib/pq backed Gateway. Outside WithinTx each call
// runs on its own pooled connection.
type PostgresGateway struct {
	*pgStore
	db *database.DB
}

func NewPostgresGateway(db *database.DB) *PostgresGateway {
	return &PostgresGateway{
		pgStore: newPGStore(db),
		db:      db,
	}
}

// WithinTx runs fn at READ COMMITTED; lost updates are prevented by the
// battle version check and the in-place rating increments.
func (g *PostgresGateway) WithinTx(ctx context.Context, fn func(Store) error) error {
	return g.db.WithTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		return fn(newPGStore(tx))
	})
}

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *database.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}

const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	username    TEXT NOT NULL UNIQUE,
	role        TEXT NOT NULL CHECK (role IN ('PARTICIPANT', 'REFEREE', 'ADMIN')),
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	rating      INTEGER NOT NULL DEFAULT 1200,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS studios (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	owner_id  TEXT NOT NULL REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS battles (
	id                      TEXT PRIMARY KEY,
	initiator_id            TEXT NOT NULL REFERENCES users(id),
	challenged_id           TEXT NOT NULL REFERENCES users(id),
	status                  TEXT NOT NULL,
	referee_id              TEXT REFERENCES users(id),
	initiator_preferences   JSONB,
	challenged_preferences  JSONB,
	selected_studio_id      TEXT REFERENCES studios(id),
	scheduled_date          DATE,
	scheduled_time          TEXT,
	location                TEXT,
	scores                  JSONB,
	winner_id               TEXT REFERENCES users(id),
	outcome                 TEXT,
	absent_ids              TEXT[],
	result_revision         INTEGER NOT NULL DEFAULT 0,
	cancel_reason           TEXT,
	version                 INTEGER NOT NULL DEFAULT 1,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (initiator_id <> challenged_id)
);

CREATE INDEX IF NOT EXISTS idx_battles_initiator ON battles(initiator_id);
CREATE INDEX IF NOT EXISTS idx_battles_challenged ON battles(challenged_id);
CREATE INDEX IF NOT EXISTS idx_battles_referee ON battles(referee_id);

CREATE TABLE IF NOT EXISTS seasons (
	label       TEXT PRIMARY KEY,
	mode        TEXT NOT NULL CHECK (mode IN ('full', 'carry20')),
	applied_by  TEXT NOT NULL REFERENCES users(id),
	applied_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rating_entries (
	seq           BIGSERIAL UNIQUE,
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL REFERENCES users(id),
	battle_id     TEXT REFERENCES battles(id),
	season_label  TEXT REFERENCES seasons(label),
	delta         INTEGER NOT NULL,
	reason        TEXT NOT NULL,
	revision      INTEGER NOT NULL DEFAULT 0,
	reverses_id   TEXT UNIQUE REFERENCES rating_entries(id),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_rating_entries_battle_revision
	ON rating_entries(battle_id, user_id, reason, revision)
	WHERE battle_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_rating_entries_season
	ON rating_entries(season_label, user_id)
	WHERE season_label IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_rating_entries_user ON rating_entries(user_id, seq);
`
