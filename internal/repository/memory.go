package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cloud-asset-api/internal/model"
)

// MemoryUserRepo is an in-process credential store.  Insert checks and
// writes under one lock, so concurrent registrations of the same username
// see exactly one success.
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[string]model.Credential
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]model.Credential)}
}

func (r *MemoryUserRepo) Insert(_ context.Context, username, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; ok {
		return ErrDuplicateUsername
	}
	r.users[username] = model.Credential{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

func (r *MemoryUserRepo) FindByUsername(_ context.Context, username string) (model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.users[username]
	if !ok {
		return model.Credential{}, ErrUserNotFound
	}
	return c, nil
}

// MemoryAssetRepo mirrors AssetRepo on a map.
type MemoryAssetRepo struct {
	mu     sync.RWMutex
	assets map[string]model.Asset
	seq    map[string]uint64
	next   uint64
}

func NewMemoryAssetRepo() *MemoryAssetRepo {
	return &MemoryAssetRepo{
		assets: make(map[string]model.Asset),
		seq:    make(map[string]uint64),
	}
}

func (r *MemoryAssetRepo) Create(_ context.Context, a *model.Asset) error {
	now := time.Now().UTC().Truncate(time.Second)
	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.assets[a.ID] = *a
	r.seq[a.ID] = r.next
	return nil
}

func (r *MemoryAssetRepo) GetByID(_ context.Context, id string) (*model.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	return &a, nil
}

// ListByOwner returns the owner's assets in insertion order.
func (r *MemoryAssetRepo) ListByOwner(_ context.Context, owner string) ([]model.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []model.Asset{}
	for _, a := range r.assets {
		if a.Owner == owner {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.seq[out[i].ID] < r.seq[out[j].ID] })
	return out, nil
}

func (r *MemoryAssetRepo) UpdateByIDAndOwner(_ context.Context, a *model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.assets[a.ID]
	if !ok || cur.Owner != a.Owner {
		return ErrAssetNotFound
	}
	cur.Name, cur.Type, cur.Region = a.Name, a.Type, a.Region
	cur.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	r.assets[a.ID] = cur
	*a = cur
	return nil
}

func (r *MemoryAssetRepo) DeleteByIDAndOwner(_ context.Context, id, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.assets[id]
	if !ok || cur.Owner != owner {
		return ErrAssetNotFound
	}
	delete(r.assets, id)
	delete(r.seq, id)
	return nil
}
