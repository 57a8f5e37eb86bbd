// Package records executes authorised record mutations. Table and column
// identifiers come from the schema registry, never from request input.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tvpanel/tvpanel/internal/db"
	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/policy"
	"github.com/tvpanel/tvpanel/internal/schema"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Persistence errors.
var (
	// ErrNotFound indicates the addressed row does not exist.
	ErrNotFound = errors.New("records: not found")
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("records: duplicate")
)

// Store runs single-statement writes against the panel tables.
type Store struct {
	db  *gorm.DB
	now func() time.Time
	loc *time.Location
}

// NewStore constructs a Store. Calendar dates are written as midnight UTC
// until WithLocation names the connection's zone.
func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn, now: func() time.Time { return time.Now().UTC() }, loc: time.UTC}
}

// WithLocation sets the zone the driver converts time parameters into.
// MySQL connections convert to their Loc before formatting, so a date
// stamped in another zone can land on the neighbouring day.
func (s *Store) WithLocation(loc *time.Location) *Store {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// calendarDate stamps the day of d as midnight in the store's zone.
func (s *Store) calendarDate(d time.Time) datatypes.Date {
	return datatypes.Date(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc))
}

// param rewrites coerced values into their driver parameter form.
func (s *Store) param(v any) any {
	if d, ok := v.(datatypes.Date); ok {
		return s.calendarDate(time.Time(d))
	}
	return v
}

func (s *Store) model(ctx context.Context, t schema.Table) (*gorm.DB, error) {
	m, ok := modelFor(t)
	if !ok {
		return nil, fmt.Errorf("records: unknown table %s", t)
	}
	return s.db.WithContext(ctx).Model(m), nil
}

// Exists reports whether a row with id exists in t.
func (s *Store) Exists(ctx context.Context, t schema.Table, id uint64) (bool, error) {
	q, err := s.model(ctx, t)
	if err != nil {
		return false, err
	}
	var count int64
	if errCount := q.Where("id = ?", id).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// UpdateField writes one authorised column of the row with id.
func (s *Store) UpdateField(ctx context.Context, upd policy.Update, id uint64) error {
	exists, err := s.Exists(ctx, upd.Table, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	values := map[string]any{string(upd.Column()): s.param(upd.Value)}
	if upd.Touch {
		values[string(schema.ColUpdatedAt)] = s.now()
	}
	q, err := s.model(ctx, upd.Table)
	if err != nil {
		return err
	}
	res := q.Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return classify(res.Error)
	}
	return nil
}

// Delete removes the row with id from t.
func (s *Store) Delete(ctx context.Context, t schema.Table, id uint64) error {
	m, ok := modelFor(t)
	if !ok {
		return fmt.Errorf("records: unknown table %s", t)
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(m)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UsernameTaken reports whether a client already uses username.
func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.Client{}).Where("username = ?", username).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// CreateClient inserts a validated client and returns its id.
func (s *Store) CreateClient(ctx context.Context, c policy.NewClient, createdBy string) (uint64, error) {
	expDate := s.calendarDate(c.ExpDate)
	row := models.Client{
		Username:       c.Username,
		Password:       c.Password,
		IsTrial:        c.IsTrial,
		ExpDate:        &expDate,
		MaxConnections: c.MaxConnections,
		CreatedBy:      createdBy,
		Bouquet:        c.Bouquet,
		Notes:          c.Notes,
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return 0, classify(errCreate)
	}
	return row.ID, nil
}

// Insert creates a reference-table row from authorised, coerced values.
func (s *Store) Insert(ctx context.Context, t schema.Table, values map[schema.Column]any) (uint64, error) {
	row, id, err := newRow(t, values)
	if err != nil {
		return 0, err
	}
	if errCreate := s.db.WithContext(ctx).Create(row).Error; errCreate != nil {
		return 0, classify(errCreate)
	}
	return *id, nil
}

// InsertAll creates every row in t inside one transaction. Any failure
// rolls the whole batch back; the error names the zero-based row index.
func (s *Store) InsertAll(ctx context.Context, t schema.Table, rows []map[schema.Column]any) ([]uint64, error) {
	ids := make([]uint64, 0, len(rows))
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, values := range rows {
			row, id, err := newRow(t, values)
			if err != nil {
				return err
			}
			if errCreate := tx.Create(row).Error; errCreate != nil {
				return fmt.Errorf("row %d: %w", i, classify(errCreate))
			}
			ids = append(ids, *id)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return ids, nil
}

// Client loads the client with id.
func (s *Store) Client(ctx context.Context, id uint64) (models.Client, error) {
	var row models.Client
	if errFind := s.db.WithContext(ctx).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Client{}, ErrNotFound
		}
		return models.Client{}, errFind
	}
	return row, nil
}

// ListOptions pages a generic listing.
type ListOptions struct {
	Limit  int
	Offset int
}

// List returns the rows of t ordered by id as column maps.
func (s *Store) List(ctx context.Context, t schema.Table, opts ListOptions) ([]map[string]any, error) {
	q := s.db.WithContext(ctx).Table(string(t)).Order(clause.OrderByColumn{Column: clause.Column{Name: string(schema.ColID)}})
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var rows []map[string]any
	if errFind := q.Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	for _, row := range rows {
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
	}
	return rows, nil
}

// ClientFilter narrows a client listing.
type ClientFilter struct {
	Search string // Case-insensitive match on username, bouquet or notes.
}

// ListClients returns clients ordered by expiry date, soonest first.
func (s *Store) ListClients(ctx context.Context, filter ClientFilter) ([]models.Client, error) {
	q := s.db.WithContext(ctx).Model(&models.Client{})
	if filter.Search != "" {
		pattern := db.ContainsPattern(s.db, filter.Search)
		q = q.Where(
			s.db.Where(db.CaseInsensitiveLikeExpr(s.db, "username"), pattern).
				Or(db.CaseInsensitiveLikeExpr(s.db, "bouquet"), pattern).
				Or(db.CaseInsensitiveLikeExpr(s.db, "notes"), pattern),
		)
	}
	var rows []models.Client
	if errFind := q.Order("exp_date ASC").Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

func classify(err error) error {
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
