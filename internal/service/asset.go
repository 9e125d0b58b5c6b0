package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/cloud-asset-api/internal/metrics"
	"github.com/iliyamo/cloud-asset-api/internal/model"
	"github.com/iliyamo/cloud-asset-api/internal/queue"
	"github.com/iliyamo/cloud-asset-api/internal/repository"
)

// AssetStore persists asset records.  Single-record lookups by ID return
// repository.ErrAssetNotFound when absent; the ...AndOwner mutations also
// return it when the owner does not match.
type AssetStore interface {
	Create(ctx context.Context, a *model.Asset) error
	GetByID(ctx context.Context, id string) (*model.Asset, error)
	ListByOwner(ctx context.Context, owner string) ([]model.Asset, error)
	UpdateByIDAndOwner(ctx context.Context, a *model.Asset) error
	DeleteByIDAndOwner(ctx context.Context, id, owner string) error
}

// AssetInput is the client-settable part of an asset.  The owner is never
// taken from input.
type AssetInput struct {
	Name   string
	Type   string
	Region string
}

// Field length limits, counted in characters.
const (
	maxAssetName   = 200
	maxAssetType   = 50
	maxAssetRegion = 50
)

func (in AssetInput) normalized() (AssetInput, error) {
	out := AssetInput{
		Name:   strings.TrimSpace(in.Name),
		Type:   strings.TrimSpace(in.Type),
		Region: strings.TrimSpace(in.Region),
	}
	for _, f := range []struct {
		name, value string
		max         int
	}{
		{"name", out.Name, maxAssetName},
		{"type", out.Type, maxAssetType},
		{"region", out.Region, maxAssetRegion},
	} {
		if n := utf8.RuneCountInString(f.value); n == 0 || n > f.max {
			return AssetInput{}, fmt.Errorf("%w: %s must be between 1 and %d characters", ErrInvalidAsset, f.name, f.max)
		}
	}
	return out, nil
}

// AssetService runs asset CRUD on behalf of a resolved identity, applying
// the owner-only policy.  Records owned by someone else are reported as
// repository.ErrAssetNotFound.
type AssetService struct {
	store   AssetStore
	policy  OwnerPolicy
	events  queue.Publisher
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
}

// NewAssetService wires the service.  A nil publisher disables audit events
// and a nil logger discards logs.
func NewAssetService(store AssetStore, events queue.Publisher, m *metrics.Metrics, log *zap.SugaredLogger) *AssetService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AssetService{store: store, events: events, metrics: m, log: log}
}

// Create stores a new asset owned by identity.
func (s *AssetService) Create(ctx context.Context, identity string, in AssetInput) (*model.Asset, error) {
	in, err := in.normalized()
	if err != nil {
		s.metrics.AssetOperation("create", metrics.OutcomeRejected)
		return nil, err
	}
	a := &model.Asset{Name: in.Name, Type: in.Type, Region: in.Region, Owner: identity}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, s.fail("create", err)
	}
	s.metrics.AssetOperation("create", metrics.OutcomeSuccess)
	s.publish(ctx, queue.EventAssetCreated, a)
	return a, nil
}

// List returns the assets owned by identity.
func (s *AssetService) List(ctx context.Context, identity string) ([]model.Asset, error) {
	items, err := s.store.ListByOwner(ctx, identity)
	if err != nil {
		return nil, s.fail("list", err)
	}
	s.metrics.AssetOperation("list", metrics.OutcomeSuccess)
	return s.policy.Filter(identity, items), nil
}

// Get returns one asset if identity owns it.
func (s *AssetService) Get(ctx context.Context, identity, id string) (*model.Asset, error) {
	a, err := s.lookup(ctx, "get", identity, id)
	if err != nil {
		return nil, err
	}
	s.metrics.AssetOperation("get", metrics.OutcomeSuccess)
	return a, nil
}

// Update replaces name, type and region of an asset identity owns.
func (s *AssetService) Update(ctx context.Context, identity, id string, in AssetInput) (*model.Asset, error) {
	in, err := in.normalized()
	if err != nil {
		s.metrics.AssetOperation("update", metrics.OutcomeRejected)
		return nil, err
	}
	a, err := s.lookup(ctx, "update", identity, id)
	if err != nil {
		return nil, err
	}
	a.Name, a.Type, a.Region = in.Name, in.Type, in.Region
	if err := s.store.UpdateByIDAndOwner(ctx, a); err != nil {
		return nil, s.fail("update", err)
	}
	s.metrics.AssetOperation("update", metrics.OutcomeSuccess)
	s.publish(ctx, queue.EventAssetUpdated, a)
	return a, nil
}

// Delete removes an asset identity owns.
func (s *AssetService) Delete(ctx context.Context, identity, id string) error {
	a, err := s.lookup(ctx, "delete", identity, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteByIDAndOwner(ctx, a.ID, identity); err != nil {
		return s.fail("delete", err)
	}
	s.metrics.AssetOperation("delete", metrics.OutcomeSuccess)
	s.publish(ctx, queue.EventAssetDeleted, a)
	return nil
}

// lookup loads an asset and applies the ownership policy.  Malformed IDs
// yield ErrInvalidAssetID; missing and foreign assets both yield
// repository.ErrAssetNotFound.
func (s *AssetService) lookup(ctx context.Context, op, identity, id string) (*model.Asset, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		s.metrics.AssetOperation(op, metrics.OutcomeRejected)
		return nil, ErrInvalidAssetID
	}
	// Stored IDs are canonical; braced, urn and bare-hex forms map onto them.
	a, err := s.store.GetByID(ctx, parsed.String())
	if err != nil {
		return nil, s.fail(op, err)
	}
	if !s.policy.CanAccess(identity, a.Owner) {
		s.metrics.AssetOperation(op, metrics.OutcomeRejected)
		return nil, repository.ErrAssetNotFound
	}
	return a, nil
}

// fail records and wraps a store error.  Not-found passes through unwrapped
// so callers can match it directly.
func (s *AssetService) fail(op string, err error) error {
	if errors.Is(err, repository.ErrAssetNotFound) {
		s.metrics.AssetOperation(op, metrics.OutcomeRejected)
		return repository.ErrAssetNotFound
	}
	s.metrics.AssetOperation(op, metrics.OutcomeError)
	s.log.Errorw("asset store failure", "op", op, "error", err)
	return fmt.Errorf("%s asset: %w", op, err)
}

func (s *AssetService) publish(ctx context.Context, typ string, a *model.Asset) {
	ev := queue.NewAuditEvent(typ, a.Owner)
	ev.AssetID = a.ID
	ev.AssetName = a.Name

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warnw("audit publish failed", "type", typ, "error", err)
	}
}
