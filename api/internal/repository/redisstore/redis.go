// Package redisstore keeps users in Redis hashes. An email index hash maps
// each email to its user id; the insert script claims the email and writes
// the record in one atomic step.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/signupform/signup/api/internal/domain"
	"github.com/signupform/signup/api/internal/repository"
)

// KEYS[1] email index, KEYS[2] id counter. ARGV: record prefix, email, full
// name, password hash, created_at. Returns the new id, or 0 when taken.
var createUserScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[2]) == 1 then
	return 0
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], ARGV[2], id)
redis.call('HSET', ARGV[1] .. id,
	'full_name', ARGV[3],
	'email', ARGV[2],
	'password_hash', ARGV[4],
	'created_at', ARGV[5])
return id
`)

// Repository implements persistence interfaces on Redis.
type Repository struct {
	client *redis.Client
	prefix string
}

// Dial connects to addr and verifies the server answers.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// New constructs a Repository whose keys all start with prefix.
func New(client *redis.Client, prefix string) *Repository {
	return &Repository{client: client, prefix: prefix}
}

var _ repository.UserRepository = (*Repository)(nil)

func (r *Repository) emailIndexKey() string { return r.prefix + "users:email" }
func (r *Repository) counterKey() string    { return r.prefix + "users:seq" }
func (r *Repository) recordPrefix() string  { return r.prefix + "user:" }

// CreateUser stores user and assigns its id unless the email is already indexed.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	keys := []string{r.emailIndexKey(), r.counterKey()}
	id, err := createUserScript.Run(ctx, r.client, keys,
		r.recordPrefix(),
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.CreatedAt.UTC().Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if id == 0 {
		return repository.ErrDuplicateEmail
	}
	user.ID = id
	return nil
}

// GetUserByEmail fetches a user by exact email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	rawID, err := r.client.HGet(ctx, r.emailIndexKey(), email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	fields, err := r.client.HGetAll(ctx, r.recordPrefix()+rawID).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", rawID, err)
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &domain.User{
		ID:           id,
		FullName:     fields["full_name"],
		Email:        fields["email"],
		PasswordHash: []byte(fields["password_hash"]),
		CreatedAt:    created,
	}, nil
}

// CountUsers returns the number of indexed emails.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	return r.client.HLen(ctx, r.emailIndexKey()).Result()
}

// Ping checks the server answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
