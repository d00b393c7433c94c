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

type ReservationOrder int

const (
	NewestFirst ReservationOrder = iota
	EarliestCheckInFirst
)

type RoomRepository interface {
	SearchAvailability(ctx context.Context, q domain.SearchQuery) ([]domain.RoomTypeAvailability, error)
	RoomTypeExists(ctx context.Context, roomType string) (bool, error)
	Reserve(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, error)
	ListByUser(ctx context.Context, userID int64, order ReservationOrder, limit int) ([]domain.ReservationSummary, error)
}

type PGRoomRepository struct {
	db *pgxpool.Pool
	tx txRunner
}

func NewRoomRepository(db *pgxpool.Pool, lockTimeout time.Duration) RoomRepository {
	return &PGRoomRepository{db: db, tx: txRunner{db: db, lockTimeout: lockTimeout}}
}

const searchAvailabilitySQL = `
SELECT p.room_type,
       MIN(p.price),
       MAX(p.max_guests),
       MIN(p.description),
       COUNT(*),
       COUNT(*) FILTER (WHERE NOT EXISTS (
           SELECT 1 FROM reservations r
           WHERE r.room_id = p.id
             AND r.status = ANY($3)
             AND r.check_in < $2
             AND r.check_out > $1))
FROM rooms p
WHERE p.is_active AND p.max_guests >= $4
GROUP BY p.room_type
ORDER BY MIN(p.price), p.room_type`

// SearchAvailability runs under the pool's default isolation and takes no
// locks; Reserve re-checks overlap under SERIALIZABLE.
func (r *PGRoomRepository) SearchAvailability(ctx context.Context, q domain.SearchQuery) ([]domain.RoomTypeAvailability, error) {
	rows, err := r.db.Query(ctx, searchAvailabilitySQL, q.Stay.CheckIn, q.Stay.CheckOut, blockingStatuses(), q.Guests)
	if err != nil {
		return nil, domain.NewInfrastructure("search availability", err)
	}
	defer rows.Close()

	items := make([]domain.RoomTypeAvailability, 0)
	for rows.Next() {
		var a domain.RoomTypeAvailability
		if err := rows.Scan(&a.RoomType, &a.MinPrice, &a.MaxCapacity, &a.Description, &a.TotalRooms, &a.AvailableRooms); err != nil {
			return nil, domain.NewInfrastructure("scan availability", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInfrastructure("search availability", err)
	}
	return items, nil
}

func (r *PGRoomRepository) RoomTypeExists(ctx context.Context, roomType string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE room_type = $1 AND is_active)`, roomType).Scan(&exists)
	if err != nil {
		return false, domain.NewInfrastructure("room type lookup", err)
	}
	return exists, nil
}

// pickRoomSQL locks the cheapest free room of the type. The NOT EXISTS
// predicate is the same overlap rule as searchAvailabilitySQL.
const pickRoomSQL = `
SELECT p.id, p.number, p.price
FROM rooms p
WHERE p.is_active
  AND p.room_type = $1
  AND p.max_guests >= $2
  AND NOT EXISTS (
      SELECT 1 FROM reservations r
      WHERE r.room_id = p.id
        AND r.status = ANY($5)
        AND r.check_in < $4
        AND r.check_out > $3)
ORDER BY p.price, p.id
LIMIT 1
FOR UPDATE OF p`

const insertReservationSQL = `
INSERT INTO reservations (room_id, user_id, check_in, check_out, adults, children, total, status,
                          first_name, last_name, phone, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id, created_at`

func (r *PGRoomRepository) Reserve(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, error) {
	resource := "room type " + req.RoomType
	res := &domain.Reservation{
		RoomType: req.RoomType,
		UserID:   req.UserID,
		CheckIn:  req.Stay.CheckIn,
		CheckOut: req.Stay.CheckOut,
		Nights:   req.Stay.Nights,
		Adults:   req.Occupancy.Adults,
		Children: req.Occupancy.Children,
		Status:   domain.ReservationStatusConfirmed,
		Guest:    req.Guest,
	}

	err := r.tx.serializable(ctx, "reserve room", resource, func(tx pgx.Tx) error {
		var room domain.Room
		err := tx.QueryRow(ctx, pickRoomSQL,
			req.RoomType, req.Occupancy.Total(), req.Stay.CheckIn, req.Stay.CheckOut, blockingStatuses(),
		).Scan(&room.ID, &room.Number, &room.Price)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewCapacityConflict(resource, 0)
		}
		if err != nil {
			return fmt.Errorf("pick room: %w", err)
		}

		res.RoomID = room.ID
		res.RoomNumber = room.Number
		res.Total = domain.StayTotal(room.Price, req.Stay.Nights)

		err = tx.QueryRow(ctx, insertReservationSQL,
			res.RoomID, res.UserID, res.CheckIn, res.CheckOut, res.Adults, res.Children, res.Total, string(res.Status),
			res.Guest.FirstName, res.Guest.LastName, res.Guest.Phone, res.Guest.Notes,
		).Scan(&res.ID, &res.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *PGRoomRepository) ListByUser(ctx context.Context, userID int64, order ReservationOrder, limit int) ([]domain.ReservationSummary, error) {
	orderBy := "r.created_at DESC, r.id DESC"
	if order == EarliestCheckInFirst {
		orderBy = "r.check_in ASC, r.id ASC"
	}
	query := `SELECT r.id, r.check_in, r.check_out, r.adults, r.children, r.total, r.status, p.room_type, p.number, r.created_at
		FROM reservations r
		JOIN rooms p ON p.id = r.room_id
		WHERE r.user_id = $1
		ORDER BY ` + orderBy + `
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, domain.NewInfrastructure("list reservations", err)
	}
	defer rows.Close()

	items := make([]domain.ReservationSummary, 0)
	for rows.Next() {
		var s domain.ReservationSummary
		var status string
		if err := rows.Scan(&s.ID, &s.CheckIn, &s.CheckOut, &s.Adults, &s.Children, &s.Total, &status, &s.RoomType, &s.RoomNumber, &s.CreatedAt); err != nil {
			return nil, domain.NewInfrastructure("scan reservation", err)
		}
		s.Status = domain.ReservationStatus(status)
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInfrastructure("list reservations", err)
	}
	return items, nil
}

var _ RoomRepository = (*PGRoomRepository)(nil)
