package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/repository"
)

// Store is an in-process repository.Gateway. Transactions run one at a time
// against a copy of the data that replaces the live copy on success.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *state
}

type state struct {
	battles map[string]*models.Battle
	users   map[string]*models.User
	studios map[string]*models.Studio
	seasons map[string]models.Season
	entries []models.RatingEntry
}

func NewStore() *Store {
	return &Store{
		st: &state{
			battles: make(map[string]*models.Battle),
			users:   make(map[string]*models.User),
			studios: make(map[string]*models.Studio),
			seasons: make(map[string]models.Season),
		},
	}
}

func (s *state) clone() *state {
	c := &state{
		battles: make(map[string]*models.Battle, len(s.battles)),
		users:   make(map[string]*models.User, len(s.users)),
		studios: make(map[string]*models.Studio, len(s.studios)),
		seasons: make(map[string]models.Season, len(s.seasons)),
		entries: append([]models.RatingEntry(nil), s.entries...),
	}
	for id, b := range s.battles {
		c.battles[id] = b.Clone()
	}
	for id, u := range s.users {
		user := *u
		c.users[id] = &user
	}
	for id, st := range s.studios {
		studio := *st
		c.studios[id] = &studio
	}
	for label, season := range s.seasons {
		c.seasons[label] = season
	}
	return c
}

// WithinTx serializes transactions. Non-transactional reads see the last
// committed state.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	working := s.st.clone()
	s.mu.RUnlock()

	if err := fn(&view{st: working}); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = working
	s.mu.Unlock()
	return nil
}

// write runs a single mutation as its own transaction.
func (s *Store) write(ctx context.Context, fn func(*view) error) error {
	return s.WithinTx(ctx, func(tx repository.Store) error {
		return fn(tx.(*view))
	})
}

// PutUser inserts or replaces a user. Users are provisioned elsewhere in
// production; this seeds tests and local development.
func (s *Store) PutUser(user models.User) {
	_ = s.write(context.Background(), func(v *view) error {
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		user.UpdatedAt = user.CreatedAt
		v.st.users[user.ID] = &user
		return nil
	})
}

// PutStudio inserts or replaces a studio.
func (s *Store) PutStudio(studio models.Studio) {
	_ = s.write(context.Background(), func(v *view) error {
		v.st.studios[studio.ID] = &studio
		return nil
	})
}

func (s *Store) GetBattle(ctx context.Context, id string) (*models.Battle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).GetBattle(ctx, id)
}

func (s *Store) CreateBattle(ctx context.Context, battle *models.Battle) error {
	return s.write(ctx, func(v *view) error { return v.CreateBattle(ctx, battle) })
}

func (s *Store) UpdateBattle(ctx context.Context, battle *models.Battle, expectedVersion int) error {
	return s.write(ctx, func(v *view) error { return v.UpdateBattle(ctx, battle, expectedVersion) })
}

func (s *Store) ListBattlesForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Battle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).ListBattlesForUser(ctx, userID, limit, offset)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).GetUser(ctx, id)
}

func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).ListUsersByRole(ctx, role)
}

func (s *Store) GetStudio(ctx context.Context, id string) (*models.Studio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).GetStudio(ctx, id)
}

func (s *Store) AppendRatingEntries(ctx context.Context, entries []models.RatingEntry) error {
	return s.write(ctx, func(v *view) error { return v.AppendRatingEntries(ctx, entries) })
}

func (s *Store) ListRatingEntries(ctx context.Context, battleID string) ([]models.RatingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).ListRatingEntries(ctx, battleID)
}

func (s *Store) ListRatingEntriesForUser(ctx context.Context, userID string, limit int) ([]models.RatingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).ListRatingEntriesForUser(ctx, userID, limit)
}

func (s *Store) CreateSeason(ctx context.Context, season *models.Season) error {
	return s.write(ctx, func(v *view) error { return v.CreateSeason(ctx, season) })
}

// view implements repository.Store over one state snapshot without locking.
type view struct {
	st *state
}

func (v *view) GetBattle(_ context.Context, id string) (*models.Battle, error) {
	b, ok := v.st.battles[strings.TrimSpace(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b.Clone(), nil
}

func (v *view) CreateBattle(_ context.Context, battle *models.Battle) error {
	if _, exists := v.st.battles[battle.ID]; exists {
		return repository.ErrDuplicate
	}
	v.st.battles[battle.ID] = battle.Clone()
	return nil
}

func (v *view) UpdateBattle(_ context.Context, battle *models.Battle, expectedVersion int) error {
	current, ok := v.st.battles[battle.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	battle.Version = expectedVersion + 1
	v.st.battles[battle.ID] = battle.Clone()
	return nil
}

func (v *view) ListBattlesForUser(_ context.Context, userID string, limit, offset int) ([]*models.Battle, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	items := make([]*models.Battle, 0)
	for _, b := range v.st.battles {
		if b.IsParticipant(userID) || (b.RefereeID != nil && *b.RefereeID == userID) {
			items = append(items, b.Clone())
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if offset >= len(items) {
		return []*models.Battle{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func (v *view) GetUser(_ context.Context, id string) (*models.User, error) {
	u, ok := v.st.users[strings.TrimSpace(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := *u
	return &user, nil
}

func (v *view) ListUsersByRole(_ context.Context, role models.Role) ([]*models.User, error) {
	users := make([]*models.User, 0)
	for _, u := range v.st.users {
		if u.Role == role {
			user := *u
			users = append(users, &user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (v *view) GetStudio(_ context.Context, id string) (*models.Studio, error) {
	st, ok := v.st.studios[strings.TrimSpace(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	studio := *st
	return &studio, nil
}

func (v *view) AppendRatingEntries(_ context.Context, entries []models.RatingEntry) error {
	for _, e := range entries {
		for _, existing := range v.st.entries {
			if existing.ID == e.ID || sameSlot(existing, e) {
				return repository.ErrDuplicate
			}
		}
		u, ok := v.st.users[e.UserID]
		if !ok {
			return repository.ErrNotFound
		}
		u.Rating += e.Delta
		u.UpdatedAt = e.CreatedAt
		v.st.entries = append(v.st.entries, e)
	}
	return nil
}

// sameSlot mirrors the unique indexes on rating_entries.
func sameSlot(a, b models.RatingEntry) bool {
	if a.UserID != b.UserID {
		return false
	}
	if a.BattleID != nil && b.BattleID != nil {
		return *a.BattleID == *b.BattleID && a.Reason == b.Reason && a.Revision == b.Revision
	}
	if a.SeasonLabel != nil && b.SeasonLabel != nil {
		return *a.SeasonLabel == *b.SeasonLabel
	}
	return false
}

func (v *view) ListRatingEntries(_ context.Context, battleID string) ([]models.RatingEntry, error) {
	entries := make([]models.RatingEntry, 0)
	for _, e := range v.st.entries {
		if e.BattleID != nil && *e.BattleID == battleID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (v *view) ListRatingEntriesForUser(_ context.Context, userID string, limit int) ([]models.RatingEntry, error) {
	entries := make([]models.RatingEntry, 0)
	for i := len(v.st.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(entries) == limit {
			break
		}
		if v.st.entries[i].UserID == userID {
			entries = append(entries, v.st.entries[i])
		}
	}
	return entries, nil
}

func (v *view) CreateSeason(_ context.Context, season *models.Season) error {
	if _, exists := v.st.seasons[season.Label]; exists {
		return repository.ErrDuplicate
	}
	v.st.seasons[season.Label] = *season
	return nil
}

var _ repository.Gateway = (*Store)(nil)
