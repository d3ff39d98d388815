package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/config"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

const availabilityTTL = 30 * time.Second

// RoomAvailabilityCache caches per-hostel availability listings in Redis.
// The listing endpoint is hit constantly by gate tooling; a short TTL plus
// invalidation on every mutation keeps it honest. All failures are soft: a
// miss is returned and the caller goes to the database.
type RoomAvailabilityCache struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

var _ ports.AvailabilityCache = (*RoomAvailabilityCache)(nil)

func NewRoomAvailabilityCache(client *redis.Client) *RoomAvailabilityCache {
	return &RoomAvailabilityCache{
		client: client,
		cb:     config.NewCircuitBreaker("Redis-AvailabilityCache"),
	}
}

func availabilityKey(hostelID string) string {
	return "availability:" + hostelID
}

func (c *RoomAvailabilityCache) GetRoomAvailability(ctx context.Context, hostelID string) ([]ports.RoomAvailability, bool) {
	raw, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, availabilityKey(hostelID)).Bytes()
	})
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache: get %s failed: %v", hostelID, err)
		}
		return nil, false
	}

	var rooms []ports.RoomAvailability
	if err := json.Unmarshal(raw.([]byte), &rooms); err != nil {
		log.Printf("cache: corrupt entry for %s: %v", hostelID, err)
		return nil, false
	}
	return rooms, true
}

func (c *RoomAvailabilityCache) SetRoomAvailability(ctx context.Context, hostelID string, rooms []ports.RoomAvailability) {
	body, err := json.Marshal(rooms)
	if err != nil {
		return
	}
	if _, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, availabilityKey(hostelID), body, availabilityTTL).Err()
	}); err != nil {
		log.Printf("cache: set %s failed: %v", hostelID, err)
	}
}

func (c *RoomAvailabilityCache) Invalidate(ctx context.Context, hostelID string) {
	if _, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, availabilityKey(hostelID)).Err()
	}); err != nil {
		log.Printf("cache: invalidate %s failed: %v", hostelID, err)
	}
}
