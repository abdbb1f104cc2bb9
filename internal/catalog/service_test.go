package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cache"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logger"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/paging"
)

type fakeRepo struct {
	products  []Product
	showcases int
	lastReq   paging.Request
}

func (r *fakeRepo) Get(ctx context.Context, id string) (Product, error) {
	for _, p := range r.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, errs.ErrNotFound
}

func (r *fakeRepo) List(ctx context.Context, search string, req paging.Request) (paging.Page[Product], error) {
	r.lastReq = req
	return paging.New(r.products, req, len(r.products)), nil
}

func (r *fakeRepo) Related(ctx context.Context, id string, limit int) ([]Product, error) {
	out := []Product{}
	for _, p := range r.products {
		if p.ID != id && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) Bestsellers(ctx context.Context, limit int) ([]Product, error) {
	r.showcases++
	return r.products, nil
}

func (r *fakeRepo) NewArrivals(ctx context.Context, limit int) ([]Product, error) {
	return r.products, nil
}

func (r *fakeRepo) Create(ctx context.Context, p *Product) error {
	p.ID = "new"
	r.products = append(r.products, *p)
	return nil
}

type brokenCache struct{ cache.Cache }

func (brokenCache) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("redis down")
}

func (brokenCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("redis down")
}

const (
	lampID = "2a7e9c41-5d3b-4f68-b0a2-8c1e6d4f9b31"
	deskID = "2a7e9c41-5d3b-4f68-b0a2-8c1e6d4f9b32"
)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: []Product{
		{ID: lampID, Name: "Lamp", Price: decimal.RequireFromString("10.00")},
		{ID: deskID, Name: "Desk", Price: decimal.RequireFromString("120.00")},
	}}
}

func TestHomeIsCached(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, cache.NewMemory("test"), time.Minute, logger.Discard())

	first, err := svc.Home(context.Background())
	require.NoError(t, err)
	second, err := svc.Home(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, repo.showcases)
	require.Len(t, second.Bestsellers, 2)
	require.True(t, first.Bestsellers[0].Price.Equal(second.Bestsellers[0].Price))
}

func TestCreateInvalidatesHome(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, cache.NewMemory("test"), time.Minute, logger.Discard())

	_, err := svc.Home(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Create(context.Background(), &Product{Name: "Chair", Price: decimal.NewFromInt(30)}))

	h, err := svc.Home(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.showcases)
	require.Len(t, h.Bestsellers, 3)
}

func TestHomeSurvivesCacheOutage(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, brokenCache{Cache: cache.NewMemory("test")}, time.Minute, logger.Discard())

	h, err := svc.Home(context.Background())
	require.NoError(t, err)
	require.Len(t, h.NewArrivals, 2)
}

func TestShow(t *testing.T) {
	svc := NewService(newFakeRepo(), cache.NewMemory("test"), time.Minute, logger.Discard())

	d, err := svc.Show(context.Background(), lampID)
	require.NoError(t, err)
	require.Equal(t, "Lamp", d.Product.Name)
	require.Len(t, d.Related, 1)
	require.Equal(t, deskID, d.Related[0].ID)

	_, err = svc.Show(context.Background(), "2a7e9c41-5d3b-4f68-b0a2-8c1e6d4f9bff")
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = svc.Show(context.Background(), "nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListAppliesDefaultPageSize(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, cache.NewMemory("test"), time.Minute, logger.Discard())

	_, err := svc.List(context.Background(), "", paging.Request{})
	require.NoError(t, err)
	require.Equal(t, paging.Request{Page: 1, PerPage: DefaultPerPage}, repo.lastReq)
}
