package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	domainRepo "github.com/sangkips/pdv-engine/internal/domain/repository"
)

const heldCartPrefix = "pos:held"

// DefaultHeldCartTTL bounds how long a parked sale is kept.
const DefaultHeldCartTTL = 7 * 24 * time.Hour

type heldCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHeldCartRepository creates a Redis-backed held cart store. Each held
// cart is a JSON value with a TTL, indexed by a per-terminal set.
func NewHeldCartRepository(client *redis.Client, ttl time.Duration) domainRepo.HeldCartRepository {
	if ttl <= 0 {
		ttl = DefaultHeldCartTTL
	}
	return &heldCartRepository{client: client, ttl: ttl}
}

func (r *heldCartRepository) cartKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:cart:%s", heldCartPrefix, id)
}

func (r *heldCartRepository) terminalKey(terminalID string) string {
	return fmt.Sprintf("%s:terminal:%s", heldCartPrefix, terminalID)
}

func (r *heldCartRepository) Save(ctx context.Context, held *entity.HeldCart) error {
	data, err := json.Marshal(held)
	if err != nil {
		return fmt.Errorf("encode held cart: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.cartKey(held.ID), data, r.ttl)
		pipe.SAdd(ctx, r.terminalKey(held.TerminalID), held.ID.String())
		pipe.Expire(ctx, r.terminalKey(held.TerminalID), r.ttl)
		return nil
	})
	return err
}

func (r *heldCartRepository) Get(ctx context.Context, id uuid.UUID) (*entity.HeldCart, error) {
	raw, err := r.client.Get(ctx, r.cartKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeHeldCart(raw)
}

// Pop uses GETDEL so two terminals racing on the same id cannot both
// recover it.
func (r *heldCartRepository) Pop(ctx context.Context, id uuid.UUID) (*entity.HeldCart, error) {
	raw, err := r.client.GetDel(ctx, r.cartKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	held, err := decodeHeldCart(raw)
	if err != nil {
		return nil, err
	}
	if err := r.client.SRem(ctx, r.terminalKey(held.TerminalID), id.String()).Err(); err != nil {
		return nil, err
	}
	return held, nil
}

func (r *heldCartRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	held, err := r.Pop(ctx, id)
	if err != nil {
		return false, err
	}
	return held != nil, nil
}

// ListByTerminal returns the terminal's held carts, oldest first. Index
// entries whose cart expired are pruned.
func (r *heldCartRepository) ListByTerminal(ctx context.Context, terminalID string) ([]entity.HeldCart, error) {
	ids, err := r.client.SMembers(ctx, r.terminalKey(terminalID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []entity.HeldCart{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("%s:cart:%s", heldCartPrefix, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]entity.HeldCart, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		held, err := decodeHeldCart([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, *held)
	}
	if len(stale) > 0 {
		_ = r.client.SRem(ctx, r.terminalKey(terminalID), stale...).Err()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].HeldAt.Before(out[j].HeldAt) })
	return out, nil
}

func decodeHeldCart(raw []byte) (*entity.HeldCart, error) {
	var held entity.HeldCart
	if err := json.Unmarshal(raw, &held); err != nil {
		return nil, fmt.Errorf("decode held cart: %w", err)
	}
	return &held, nil
}
