package memory

import (
	"fmt"
	"os"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Seed is the catalog file format used to populate a Store.
type Seed struct {
	Rooms  []SeedRoom  `yaml:"rooms"`
	Events []SeedEvent `yaml:"events"`
}

type SeedRoom struct {
	ID          int64  `yaml:"id"`
	RoomType    string `yaml:"room_type"`
	Number      string `yaml:"number"`
	Price       string `yaml:"price"`
	MaxGuests   int    `yaml:"max_guests"`
	Description string `yaml:"description"`
	Inactive    bool   `yaml:"inactive"`
}

type SeedEvent struct {
	ID          int64      `yaml:"id"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Inactive    bool       `yaml:"inactive"`
	Slots       []SeedSlot `yaml:"slots"`
}

type SeedSlot struct {
	ID       int64  `yaml:"id"`
	StartsAt string `yaml:"starts_at"`
	Capacity int    `yaml:"capacity"`
	// Remaining defaults to Capacity when omitted.
	Remaining *int `yaml:"remaining"`
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &seed, nil
}

func (s *Store) Apply(seed *Seed) error {
	for _, r := range seed.Rooms {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return fmt.Errorf("room %d: invalid price %q: %w", r.ID, r.Price, err)
		}
		if r.MaxGuests < 1 {
			return fmt.Errorf("room %d: max_guests must be at least 1", r.ID)
		}
		s.AddRoom(domain.Room{
			ID:          r.ID,
			RoomType:    r.RoomType,
			Number:      r.Number,
			Price:       price,
			MaxGuests:   r.MaxGuests,
			Description: r.Description,
			Active:      !r.Inactive,
		})
	}

	for _, e := range seed.Events {
		event := domain.Event{ID: e.ID, Title: e.Title, Description: e.Description}
		for _, sl := range e.Slots {
			startsAt, err := time.Parse(time.RFC3339, sl.StartsAt)
			if err != nil {
				return fmt.Errorf("slot %d: invalid starts_at %q: %w", sl.ID, sl.StartsAt, err)
			}
			if sl.Capacity < 1 {
				return fmt.Errorf("slot %d: capacity must be at least 1", sl.ID)
			}
			remaining := sl.Capacity
			if sl.Remaining != nil {
				remaining = *sl.Remaining
			}
			event.Slots = append(event.Slots, domain.EventSlot{
				ID:        sl.ID,
				StartsAt:  startsAt,
				Capacity:  sl.Capacity,
				Remaining: remaining,
			})
		}
		if err := s.AddEvent(event, !e.Inactive); err != nil {
			return fmt.Errorf("event %d: %w", e.ID, err)
		}
	}
	return nil
}
