package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cloud-asset-api/internal/metrics"
	"github.com/iliyamo/cloud-asset-api/internal/model"
	"github.com/iliyamo/cloud-asset-api/internal/queue"
	"github.com/iliyamo/cloud-asset-api/internal/repository"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func newAssetService(t *testing.T) (*AssetService, *recordingPublisher, *metrics.Metrics) {
	t.Helper()
	pub := &recordingPublisher{}
	m := metrics.New()
	return NewAssetService(repository.NewMemoryAssetRepo(), pub, m, nil), pub, m
}

func vm(name string) AssetInput {
	return AssetInput{Name: name, Type: "vm", Region: "eu-west-1"}
}

func TestAssetService_CreateSetsOwnerFromIdentity(t *testing.T) {
	svc, pub, _ := newAssetService(t)

	a, err := svc.Create(context.Background(), "carol", AssetInput{Name: "  web-1 ", Type: "vm", Region: "us-east-1"})
	require.NoError(t, err)

	assert.Equal(t, "carol", a.Owner)
	assert.Equal(t, "web-1", a.Name)
	_, err = uuid.Parse(a.ID)
	assert.NoError(t, err)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, []string{queue.EventAssetCreated}, pub.types())
	assert.Equal(t, a.ID, pub.events[0].AssetID)
}

func TestAssetService_CreateValidation(t *testing.T) {
	svc, pub, m := newAssetService(t)
	ctx := context.Background()

	bad := []AssetInput{
		{Name: "", Type: "vm", Region: "r"},
		{Name: "   ", Type: "vm", Region: "r"},
		{Name: "n", Type: "", Region: "r"},
		{Name: "n", Type: "vm", Region: ""},
		{Name: strings.Repeat("a", maxAssetName+1), Type: "vm", Region: "r"},
		{Name: "n", Type: strings.Repeat("t", maxAssetType+1), Region: "r"},
	}
	for _, in := range bad {
		_, err := svc.Create(ctx, "carol", in)
		assert.ErrorIs(t, err, ErrInvalidAsset)
	}

	// Limits count characters, not bytes.
	_, err := svc.Create(ctx, "carol", AssetInput{Name: strings.Repeat("é", maxAssetName), Type: "vm", Region: "r"})
	assert.NoError(t, err)

	assert.Len(t, pub.types(), 1)
	assert.InDelta(t, float64(len(bad)), counterValue(t, m.AssetOperationsTotal.WithLabelValues("create", metrics.OutcomeRejected)), 0)
}

func TestAssetService_ListIsOwnerScoped(t *testing.T) {
	svc, _, _ := newAssetService(t)
	ctx := context.Background()

	for _, n := range []string{"a", "b"} {
		_, err := svc.Create(ctx, "carol", vm(n))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "bob", vm("c"))
	require.NoError(t, err)

	mine, err := svc.List(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "a", mine[0].Name)
	assert.Equal(t, "b", mine[1].Name)

	none, err := svc.List(ctx, "dave")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAssetService_ForeignLooksLikeMissing(t *testing.T) {
	svc, pub, _ := newAssetService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "carol", vm("db"))
	require.NoError(t, err)
	missing := uuid.NewString()

	_, errForeign := svc.Get(ctx, "bob", a.ID)
	_, errMissing := svc.Get(ctx, "bob", missing)
	assert.ErrorIs(t, errForeign, repository.ErrAssetNotFound)
	assert.ErrorIs(t, errMissing, repository.ErrAssetNotFound)
	assert.Equal(t, errMissing.Error(), errForeign.Error())

	_, err = svc.Update(ctx, "bob", a.ID, vm("stolen"))
	assert.ErrorIs(t, err, repository.ErrAssetNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "bob", a.ID), repository.ErrAssetNotFound)

	got, err := svc.Get(ctx, "carol", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "db", got.Name)
	assert.Equal(t, []string{queue.EventAssetCreated}, pub.types())
}

func TestAssetService_UpdateAndDelete(t *testing.T) {
	svc, pub, _ := newAssetService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "carol", vm("old"))
	require.NoError(t, err)

	up, err := svc.Update(ctx, "carol", a.ID, AssetInput{Name: "new", Type: "bucket", Region: "ap-south-1"})
	require.NoError(t, err)
	assert.Equal(t, "new", up.Name)
	assert.Equal(t, "bucket", up.Type)
	assert.Equal(t, "carol", up.Owner)
	assert.Equal(t, a.ID, up.ID)

	_, err = svc.Update(ctx, "carol", a.ID, AssetInput{Name: "", Type: "vm", Region: "r"})
	assert.ErrorIs(t, err, ErrInvalidAsset)

	require.NoError(t, svc.Delete(ctx, "carol", a.ID))
	_, err = svc.Get(ctx, "carol", a.ID)
	assert.ErrorIs(t, err, repository.ErrAssetNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "carol", a.ID), repository.ErrAssetNotFound)

	assert.Equal(t, []string{queue.EventAssetCreated, queue.EventAssetUpdated, queue.EventAssetDeleted}, pub.types())
}

func TestAssetService_MalformedID(t *testing.T) {
	svc, _, _ := newAssetService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "carol", "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidAssetID)
	_, err = svc.Update(ctx, "carol", "", vm("x"))
	assert.ErrorIs(t, err, ErrInvalidAssetID)
	assert.ErrorIs(t, svc.Delete(ctx, "carol", "123"), ErrInvalidAssetID)
}

func TestAssetService_NonCanonicalIDForms(t *testing.T) {
	svc, _, _ := newAssetService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "carol", vm("web"))
	require.NoError(t, err)

	forms := []string{
		strings.ToUpper(a.ID),
		"{" + a.ID + "}",
		"urn:uuid:" + a.ID,
		strings.ReplaceAll(a.ID, "-", ""),
	}
	for _, id := range forms {
		got, err := svc.Get(ctx, "carol", id)
		require.NoError(t, err, id)
		assert.Equal(t, a.ID, got.ID)
	}

	_, err = svc.Update(ctx, "carol", "{"+a.ID+"}", vm("web-2"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "carol", "urn:uuid:"+a.ID))
	_, err = svc.Get(ctx, "carol", a.ID)
	assert.ErrorIs(t, err, repository.ErrAssetNotFound)
}

type brokenAssetStore struct {
	repository.MemoryAssetRepo
	err error
}

func (s *brokenAssetStore) ListByOwner(context.Context, string) ([]model.Asset, error) {
	return nil, s.err
}

func TestAssetService_StoreFailureIsWrapped(t *testing.T) {
	boom := errors.New("lost connection")
	m := metrics.New()
	svc := NewAssetService(&brokenAssetStore{err: boom}, nil, m, nil)

	_, err := svc.List(context.Background(), "carol")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, repository.ErrAssetNotFound)
	assert.InDelta(t, 1, counterValue(t, m.AssetOperationsTotal.WithLabelValues("list", metrics.OutcomeError)), 0)
}
