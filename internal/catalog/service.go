package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cache"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/paging"
)

const (
	DefaultPerPage = 15
	showcaseLimit  = 4
	homeCacheKey   = "v1"
)

// Service serves product reads for browsing. Home is cached; nothing that
// prices a cart or an order reads through here.
type Service struct {
	repo   Repository
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewService(repo Repository, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, logger: logger}
}

func (s *Service) List(ctx context.Context, search string, req paging.Request) (paging.Page[Product], error) {
	return s.repo.List(ctx, search, req.Normalize(DefaultPerPage))
}

func (s *Service) Show(ctx context.Context, id string) (Detail, error) {
	if err := errs.CheckID("product", id); err != nil {
		return Detail{}, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("get product %s: %w", id, err)
	}
	related, err := s.repo.Related(ctx, id, showcaseLimit)
	if err != nil {
		return Detail{}, fmt.Errorf("related products: %w", err)
	}
	return Detail{Product: p, Related: related}, nil
}

func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, s.cache.GenerateKey("home", homeCacheKey)); err != nil {
		s.logger.Warn("invalidate home cache", "err", err)
	}
	return nil
}

// Home returns the showcase lists. Cache failures fall through to the
// database.
func (s *Service) Home(ctx context.Context) (Home, error) {
	key := s.cache.GenerateKey("home", homeCacheKey)

	if raw, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("read home cache", "err", err)
	} else if raw != "" {
		var h Home
		if err := json.Unmarshal([]byte(raw), &h); err == nil {
			return h, nil
		}
	}

	best, err := s.repo.Bestsellers(ctx, showcaseLimit)
	if err != nil {
		return Home{}, fmt.Errorf("bestsellers: %w", err)
	}
	arrivals, err := s.repo.NewArrivals(ctx, showcaseLimit)
	if err != nil {
		return Home{}, fmt.Errorf("new arrivals: %w", err)
	}
	h := Home{Bestsellers: best, NewArrivals: arrivals}

	if body, err := json.Marshal(h); err == nil {
		if err := s.cache.Set(ctx, key, body, s.ttl); err != nil {
			s.logger.Warn("write home cache", "err", err)
		}
	}
	return h, nil
}
