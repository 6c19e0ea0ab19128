package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"rdmrecords/pkg/platform/sentinel"
)

var acquireDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "rdm_pid_reservation_acquire_duration_ms",
	Help:    "Latency of PID reservation lock acquisition in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// ErrReserved is returned when another entity holds the reservation.
var ErrReserved = fmt.Errorf("pid reserved by another entity: %w", sentinel.ErrConflict)

// Reservations guards the reserve step so that two entities racing for the
// same identifier cannot both reserve it at the authority.
// Acquire is idempotent for the same owner.
type Reservations interface {
	Acquire(ctx context.Context, scheme, value, owner string) error
	Release(ctx context.Context, scheme, value, owner string) error
}

const reservationKeyPrefix = "pid:reservation:"

func reservationKey(scheme, value string) string {
	return reservationKeyPrefix + scheme + ":" + value
}

// releaseScript deletes the key only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisReservations shares reservation locks between processes.
type RedisReservations struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisReservationsOption func(*RedisReservations)

// WithReservationTTL bounds how long an abandoned reservation blocks others.
// Zero keeps locks until released.
func WithReservationTTL(ttl time.Duration) RedisReservationsOption {
	return func(r *RedisReservations) {
		r.ttl = ttl
	}
}

func NewRedisReservations(client *redis.Client, opts ...RedisReservationsOption) *RedisReservations {
	r := &RedisReservations{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *RedisReservations) Acquire(ctx context.Context, scheme, value, owner string) error {
	start := time.Now()
	defer func() {
		acquireDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := reservationKey(scheme, value)
	ok, err := r.client.SetNX(ctx, key, owner, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire reservation: %w", err)
	}
	if ok {
		return nil
	}
	holder, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; try once more.
		ok, err = r.client.SetNX(ctx, key, owner, r.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire reservation: %w", err)
		}
		if ok {
			return nil
		}
		return ErrReserved
	}
	if err != nil {
		return fmt.Errorf("read reservation holder: %w", err)
	}
	if holder != owner {
		return ErrReserved
	}
	return nil
}

func (r *RedisReservations) Release(ctx context.Context, scheme, value, owner string) error {
	if err := releaseScript.Run(ctx, r.client, []string{reservationKey(scheme, value)}, owner).Err(); err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	return nil
}

// InMemoryReservations is the single-process lock table.
type InMemoryReservations struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewInMemoryReservations() *InMemoryReservations {
	return &InMemoryReservations{owners: make(map[string]string)}
}

func (r *InMemoryReservations) Acquire(_ context.Context, scheme, value, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reservationKey(scheme, value)
	if holder, ok := r.owners[key]; ok && holder != owner {
		return ErrReserved
	}
	r.owners[key] = owner
	return nil
}

func (r *InMemoryReservations) Release(_ context.Context, scheme, value, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reservationKey(scheme, value)
	if r.owners[key] == owner {
		delete(r.owners, key)
	}
	return nil
}

// Holder returns the current owner of a reservation, if any.
func (r *InMemoryReservations) Holder(scheme, value string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[reservationKey(scheme, value)]
	return owner, ok
}
