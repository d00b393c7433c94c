package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	ListActive(ctx context.Context) ([]domain.Event, error)
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.EventSignup, error)
	ListUpcomingByUser(ctx context.Context, userID int64, from time.Time, limit int) ([]domain.SignupSummary, error)
}

type PGEventRepository struct {
	db *pgxpool.Pool
	tx txRunner
}

func NewEventRepository(db *pgxpool.Pool, lockTimeout time.Duration) EventRepository {
	return &PGEventRepository{db: db, tx: txRunner{db: db, lockTimeout: lockTimeout}}
}

func (r *PGEventRepository) ListActive(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.title, e.description, s.id, s.starts_at, s.capacity, s.remaining
		FROM events e
		JOIN event_slots s ON s.event_id = e.id
		WHERE e.is_active AND s.is_active
		ORDER BY e.id, s.id`)
	if err != nil {
		return nil, domain.NewInfrastructure("list events", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var e domain.Event
		var s domain.EventSlot
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &s.ID, &s.StartsAt, &s.Capacity, &s.Remaining); err != nil {
			return nil, domain.NewInfrastructure("scan event", err)
		}
		s.EventID = e.ID
		if n := len(events); n > 0 && events[n-1].ID == e.ID {
			events[n-1].Slots = append(events[n-1].Slots, s)
			continue
		}
		e.Slots = []domain.EventSlot{s}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInfrastructure("list events", err)
	}
	return events, nil
}

// Signup admits a party into a slot. The slot row is locked FOR UPDATE so
// concurrent signups for the same slot queue behind each other; signups for
// other slots are not blocked.
func (r *PGEventRepository) Signup(ctx context.Context, req domain.SignupRequest) (*domain.EventSignup, error) {
	resource := fmt.Sprintf("event slot %d", req.SlotID)
	signup := &domain.EventSignup{
		EventID:   req.EventID,
		SlotID:    req.SlotID,
		UserID:    req.UserID,
		Attendee:  req.Attendee,
		PartySize: req.PartySize,
	}

	err := r.tx.serializable(ctx, "event signup", resource, func(tx pgx.Tx) error {
		var remaining int
		err := tx.QueryRow(ctx, `
			SELECT s.remaining
			FROM event_slots s
			JOIN events e ON e.id = s.event_id
			WHERE s.id = $1 AND s.event_id = $2 AND s.is_active AND e.is_active
			FOR UPDATE OF s`, req.SlotID, req.EventID).Scan(&remaining)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFound("event slot", req.SlotID)
		}
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}
		if remaining < req.PartySize {
			return domain.NewCapacityConflict(resource, remaining)
		}

		if err := tx.QueryRow(ctx,
			`UPDATE event_slots SET remaining = remaining - $2 WHERE id = $1 RETURNING remaining`,
			req.SlotID, req.PartySize,
		).Scan(&signup.Remaining); err != nil {
			return fmt.Errorf("decrement remaining: %w", err)
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO event_signups (slot_id, event_id, user_id, first_name, last_name, party_size)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`,
			req.SlotID, req.EventID, req.UserID, req.Attendee.FirstName, req.Attendee.LastName, req.PartySize,
		).Scan(&signup.ID, &signup.CreatedAt); err != nil {
			return fmt.Errorf("insert signup: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return signup, nil
}

func (r *PGEventRepository) ListUpcomingByUser(ctx context.Context, userID int64, from time.Time, limit int) ([]domain.SignupSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.title, s.id, s.starts_at, z.party_size
		FROM event_signups z
		JOIN events e ON e.id = z.event_id
		JOIN event_slots s ON s.id = z.slot_id
		WHERE z.user_id = $1
		  AND e.is_active AND s.is_active
		  AND s.starts_at >= $2
		ORDER BY s.starts_at ASC, z.id ASC
		LIMIT $3`, userID, from, limit)
	if err != nil {
		return nil, domain.NewInfrastructure("list signups", err)
	}
	defer rows.Close()

	items := make([]domain.SignupSummary, 0)
	for rows.Next() {
		var s domain.SignupSummary
		if err := rows.Scan(&s.EventID, &s.Title, &s.SlotID, &s.StartsAt, &s.PartySize); err != nil {
			return nil, domain.NewInfrastructure("scan signup", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInfrastructure("list signups", err)
	}
	return items, nil
}

var _ EventRepository = (*PGEventRepository)(nil)
