package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords through a bounded worker pool so
// bcrypt's CPU cost cannot stall connection handling under load.
type Hasher struct {
	sem  chan struct{}
	cost int
}

func NewHasher(workers int) *Hasher {
	if workers < 1 {
		workers = 1
	}
	return &Hasher{
		sem:  make(chan struct{}, workers),
		cost: bcrypt.DefaultCost,
	}
}

func (h *Hasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hash generates a bcrypt hash of password, waiting for a pool slot or for
// ctx to be cancelled.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer func() { <-h.sem }()

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify reports whether password matches hash.
func (h *Hasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer func() { <-h.sem }()

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil, nil
}
