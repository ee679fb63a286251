package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Catalog describes what the shop sells: subscription plans per content
// category and fixed-quantity packages. Webhook orders are validated
// against it before settlement.
type Catalog struct {
	Categories []Category `mapstructure:"categories"`
	Packages   []Package  `mapstructure:"packages"`
}

type Category struct {
	Key      string `mapstructure:"key"`
	Title    string `mapstructure:"title"`
	PlanDays []int  `mapstructure:"planDays"`
}

type Package struct {
	Code     string `mapstructure:"code"`
	Quantity int64  `mapstructure:"quantity"`
	PriceUSD int64  `mapstructure:"priceUsd"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Categories: []Category{
			{Key: "mail_combo", Title: "Mail Combo Cloud", PlanDays: []int{10, 30, 90}},
			{Key: "private_lines", Title: "Full Private Lines", PlanDays: []int{10, 30, 90}},
			{Key: "url_cloud", Title: "URL Cloud", PlanDays: []int{10, 30, 90}},
			{Key: "injectables", Title: "Injectables Cloud", PlanDays: []int{10, 30, 90}},
		},
		Packages: []Package{
			{Code: "1k", Quantity: 1000, PriceUSD: 10},
			{Code: "5k", Quantity: 5000, PriceUSD: 30},
			{Code: "10k", Quantity: 10000, PriceUSD: 50},
			{Code: "30k", Quantity: 30000, PriceUSD: 100},
		},
	}
}

func (c Catalog) Category(key string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

func (c Catalog) HasPlan(categoryKey string, days int) bool {
	cat, ok := c.Category(categoryKey)
	if !ok {
		return false
	}
	for _, d := range cat.PlanDays {
		if d == days {
			return true
		}
	}
	return false
}

func (c Catalog) Package(code string) (Package, bool) {
	for _, p := range c.Packages {
		if p.Code == code {
			return p, true
		}
	}
	return Package{}, false
}

// CatalogHolder serves the current catalog and hot-reloads it when the
// config file changes on disk.
type CatalogHolder struct {
	current atomic.Value // holds Catalog
}

func NewCatalogHolder() (*CatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("catalog")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/tollgate/config")
	v.AddConfigPath("/etc/tollgate")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TOLLGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg := DefaultCatalog()
	if fileFound {
		var loaded Catalog
		if err := v.UnmarshalKey("catalog", &loaded); err != nil {
			return nil, err
		}
		if err := validateCatalog(loaded); err != nil {
			return nil, err
		}
		cfg = loaded
	}

	holder := &CatalogHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated Catalog
			if err := v.UnmarshalKey("catalog", &updated); err != nil {
				log.Printf("[catalog] reload failed: %v", err)
				return
			}
			if err := validateCatalog(updated); err != nil {
				log.Printf("[catalog] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
		})
	}

	return holder, nil
}

// NewStaticCatalogHolder wraps a fixed catalog, used by tests.
func NewStaticCatalogHolder(cat Catalog) *CatalogHolder {
	holder := &CatalogHolder{}
	holder.current.Store(cat)
	return holder
}

func (h *CatalogHolder) Current() Catalog {
	return h.current.Load().(Catalog)
}

func validateCatalog(c Catalog) error {
	if len(c.Categories) == 0 {
		return errors.New("catalog: at least one category is required")
	}
	seen := map[string]bool{}
	for _, cat := range c.Categories {
		key := strings.TrimSpace(cat.Key)
		if key == "" {
			return errors.New("catalog: category key is required")
		}
		if seen[key] {
			return errors.New("catalog: duplicate category " + key)
		}
		seen[key] = true
		if len(cat.PlanDays) == 0 {
			return errors.New("catalog: category " + key + " has no plans")
		}
		for _, d := range cat.PlanDays {
			if d <= 0 {
				return errors.New("catalog: category " + key + " has non-positive plan days")
			}
		}
	}
	codes := map[string]bool{}
	for _, p := range c.Packages {
		code := strings.TrimSpace(p.Code)
		if code == "" {
			return errors.New("catalog: package code is required")
		}
		if codes[code] {
			return errors.New("catalog: duplicate package " + code)
		}
		codes[code] = true
		if p.Quantity <= 0 || p.PriceUSD <= 0 {
			return errors.New("catalog: package " + code + " has non-positive quantity or price")
		}
	}
	return nil
}
