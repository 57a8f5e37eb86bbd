// Package dashboard computes the client counters shown on the panel home page.
package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tvpanel/tvpanel/internal/expiry"
	"github.com/tvpanel/tvpanel/internal/models"
	"gorm.io/gorm"
)

// Stats are the dashboard counters.
// Active counts every client whose expiry date is today or later, so it includes Expiring.
type Stats struct {
	All      int64 `json:"all"`
	Active   int64 `json:"active"`
	Expiring int64 `json:"expiring"`
	Expired  int64 `json:"expired"`
}

// Add folds one classification into the counters.
func (s *Stats) Add(r expiry.Result) {
	s.All++
	switch r.Status {
	case expiry.StatusActive:
		s.Active++
	case expiry.StatusExpiringSoon:
		s.Active++
		s.Expiring++
	case expiry.StatusExpired:
		s.Expired++
	}
}

// Tally classifies every date against today.
func Tally(dates []*time.Time, today time.Time) Stats {
	var s Stats
	for _, d := range dates {
		s.Add(expiry.Classify(d, today))
	}
	return s
}

// Aggregator reads client expiry dates and tallies them.
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator constructs an Aggregator.
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Stats classifies every client row against today. Nothing is cached.
func (a *Aggregator) Stats(ctx context.Context, today time.Time) (Stats, error) {
	if a == nil || a.db == nil {
		return Stats{}, errors.New("dashboard: nil db")
	}
	rows, err := a.db.WithContext(ctx).Model(&models.Client{}).Select("exp_date").Rows()
	if err != nil {
		return Stats{}, err
	}
	defer func() { _ = rows.Close() }()

	var s Stats
	for rows.Next() {
		var expDate sql.NullTime
		if errScan := rows.Scan(&expDate); errScan != nil {
			return Stats{}, errScan
		}
		var d *time.Time
		if expDate.Valid {
			d = &expDate.Time
		}
		s.Add(expiry.Classify(d, today))
	}
	if errRows := rows.Err(); errRows != nil {
		return Stats{}, errRows
	}
	return s, nil
}
