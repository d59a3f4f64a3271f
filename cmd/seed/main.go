// Command seed populates a running catalog service with demo sellers,
// categories and products through its HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/pkg/config"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
	"github.com/utafrali/CatalogGo/pkg/httpclient"
	"github.com/utafrali/CatalogGo/pkg/logger"
)

type seedConfig struct {
	BaseURL  string   `env:"SEED_BASE_URL" envDefault:"http://localhost:8080"`
	Backends []string `env:"SEED_BACKENDS" envDefault:"relational,document" envSeparator:","`
	LogLevel string   `env:"LOG_LEVEL" envDefault:"info"`
}

type sellerDef struct {
	account string
	profile domain.Profile
}

type productDef struct {
	name        string
	description string
	price       string
	image       string
	seller      string
	categories  []string
}

var sellers = []sellerDef{
	{"judy-account", domain.Profile{FirstName: "Judy", LastName: "Foster", Gender: domain.GenderFemale, Birthday: "1985-04-12", EmailAddress: "judy@example.com"}},
	{"michael-account", domain.Profile{FirstName: "Michael", LastName: "Reyes", Gender: domain.GenderMale, Address: "12 Market Street", Website: "https://michael.example.com"}},
	{"peter-account", domain.Profile{FirstName: "Peter", LastName: "Novak", Gender: domain.GenderMale, Birthday: "1979-11-02"}},
}

var categories = []string{"Art", "Wall Decor", "Baby", "Toys", "Furniture", "Handmade", "Kitchen", "Wood"}

var products = []productDef{
	{"Teddy Bear", "Soft plush bear for little ones", "24.25", "https://img.example.com/teddy-bear.jpg", "Judy", []string{"Baby", "Toys", "Handmade"}},
	{"Framed Canvas Wall Art", "Abstract print on stretched canvas", "42.34", "https://img.example.com/canvas.jpg", "Michael", []string{"Art", "Wall Decor"}},
	{"Wooden Desk", "Solid oak writing desk", "249.99", "https://img.example.com/desk.jpg", "Peter", []string{"Furniture", "Wood"}},
	{"Antique Dining Chair", "Restored walnut chair", "234.20", "https://img.example.com/chair.jpg", "Peter", []string{"Furniture", "Wood", "Handmade"}},
	{"Bamboo Spoon", "Hand-carved cooking spoon", "13.11", "https://img.example.com/spoon.jpg", "Judy", []string{"Kitchen", "Wood", "Handmade"}},
}

func main() {
	var cfg seedConfig
	if err := config.Load(&cfg, ".env"); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("catalog-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("catalog"),
		log,
	)

	for _, name := range cfg.Backends {
		backend, ok := domain.ParseBackend(name)
		if !ok {
			log.Error("unknown backend", slog.String("backend", name))
			os.Exit(1)
		}
		s := &seeder{client: client, base: fmt.Sprintf("%s/api/v1/%s", cfg.BaseURL, backend), logger: log.With(slog.String("backend", backend.String()))}
		if err := s.run(ctx); err != nil {
			log.Error("seeding failed", slog.String("backend", backend.String()), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	log.Info("seeding complete")
}

type seeder struct {
	client *httpclient.CircuitBreakerClient
	base   string
	logger *slog.Logger
}

func (s *seeder) run(ctx context.Context) error {
	start := time.Now()

	sellerIDs := make(map[string]string, len(sellers))
	for _, def := range sellers {
		id, err := s.ensureSeller(ctx, def)
		if err != nil {
			return err
		}
		sellerIDs[def.profile.FirstName] = id
	}

	categoryIDs := make(map[string]string, len(categories))
	existing, err := s.listCategories(ctx)
	if err != nil {
		return err
	}
	for _, name := range categories {
		if id, ok := existing[name]; ok {
			categoryIDs[name] = id
			continue
		}
		var created domain.Category
		if err := s.client.DoJSON(ctx, http.MethodPost, s.base+"/categories", domain.CreateCategoryInput{Name: name}, &created); err != nil {
			return fmt.Errorf("create category %s: %w", name, err)
		}
		categoryIDs[name] = created.ID
	}

	for _, def := range products {
		if err := s.ensureProduct(ctx, def, sellerIDs, categoryIDs); err != nil {
			return err
		}
	}

	s.logger.Info("backend seeded",
		slog.Int("sellers", len(sellerIDs)),
		slog.Int("categories", len(categoryIDs)),
		slog.Int("products", len(products)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *seeder) ensureSeller(ctx context.Context, def sellerDef) (string, error) {
	var found []domain.Seller
	if err := s.client.DoJSON(ctx, http.MethodGet, s.base+"/sellers?first_name="+url.QueryEscape(def.profile.FirstName), nil, &found); err != nil {
		return "", fmt.Errorf("find seller %s: %w", def.profile.FirstName, err)
	}
	for _, seller := range found {
		if seller.AccountID == def.account {
			return seller.ID, nil
		}
	}

	var created domain.Seller
	input := domain.CreateSellerInput{AccountID: def.account, Profile: def.profile}
	if err := s.client.DoJSON(ctx, http.MethodPost, s.base+"/sellers", input, &created); err != nil {
		return "", fmt.Errorf("create seller %s: %w", def.profile.FullName(), err)
	}
	return created.ID, nil
}

func (s *seeder) listCategories(ctx context.Context) (map[string]string, error) {
	var list []domain.Category
	if err := s.client.DoJSON(ctx, http.MethodGet, s.base+"/categories", nil, &list); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	byName := make(map[string]string, len(list))
	for _, c := range list {
		byName[c.Name] = c.ID
	}
	return byName, nil
}

// ensureProduct creates def unless a product with the same name exists.
func (s *seeder) ensureProduct(ctx context.Context, def productDef, sellerIDs, categoryIDs map[string]string) error {
	var existing domain.Product
	err := s.client.DoJSON(ctx, http.MethodGet, s.base+"/products?name="+url.QueryEscape(def.name), nil, &existing)
	switch {
	case err == nil:
		s.logger.Debug("product already present", slog.String("name", def.name))
		return nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("look up product %s: %w", def.name, err)
	}

	ids := make([]string, 0, len(def.categories))
	for _, c := range def.categories {
		ids = append(ids, categoryIDs[c])
	}
	input := domain.CreateProductInput{
		Name:        def.name,
		Description: def.description,
		Price:       decimal.RequireFromString(def.price),
		ImageURLs:   []string{def.image},
		SellerID:    sellerIDs[def.seller],
		CategoryIDs: ids,
	}
	var created domain.Product
	if err := s.client.DoJSON(ctx, http.MethodPost, s.base+"/products", input, &created); err != nil {
		return fmt.Errorf("create product %s: %w", def.name, err)
	}
	s.logger.Info("product created", slog.String("name", def.name), slog.String("id", created.ID))
	return nil
}
