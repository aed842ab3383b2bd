// Package catalog holds the versioned reference data of the tracker: default
// emission factors, the national daily averages and the authored
// recommendation lists. The data ships embedded and can be replaced by a
// file at startup; it is never mutated afterwards.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ecotrace/carbon-tracker/models"
)

//go:embed catalog.yaml
var defaultData []byte

// Number of items each recommendation list must hold.
const (
	CategoryRecommendationCount = 3
	GenericRecommendationCount  = 5
)

// ErrInvalidCatalog wraps every validation failure reported by Load.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Impact is the expected emission reduction of a recommendation.
type Impact string

const (
	ImpactLow      Impact = "Faible"
	ImpactMedium   Impact = "Moyen"
	ImpactHigh     Impact = "Élevé"
	ImpactVeryHigh Impact = "Très élevé"
)

// Rank orders impact labels from 1 (low) to 4 (very high); unknown labels rank 0.
func (i Impact) Rank() int {
	switch i {
	case ImpactLow:
		return 1
	case ImpactMedium:
		return 2
	case ImpactHigh:
		return 3
	case ImpactVeryHigh:
		return 4
	}
	return 0
}

// Ease is how easy a recommendation is to adopt.
type Ease string

const (
	EaseVeryEasy Ease = "Très facile"
	EaseEasy     Ease = "Facile"
	EaseMedium   Ease = "Moyen"
)

// Rank orders ease labels from 1 (very easy) to 3 (medium); unknown labels rank 0.
func (e Ease) Rank() int {
	switch e {
	case EaseVeryEasy:
		return 1
	case EaseEasy:
		return 2
	case EaseMedium:
		return 3
	}
	return 0
}

// Recommendation is an authored suggestion shown on the dashboard.
type Recommendation struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Impact      Impact `yaml:"impact" json:"impact"`
	Ease        Ease   `yaml:"ease" json:"ease"`
}

// Recommendations groups the generic list and the per-category lists.
type Recommendations struct {
	Generic    []Recommendation                     `yaml:"generic"`
	ByCategory map[models.Category][]Recommendation `yaml:"by_category"`
}

// NationalAverage is the reference daily footprint in kg CO2.
type NationalAverage struct {
	Total       float64 `yaml:"total" json:"total"`
	Transport   float64 `yaml:"transport" json:"transport"`
	Food        float64 `yaml:"food" json:"food"`
	Energy      float64 `yaml:"energy" json:"energy"`
	Consumption float64 `yaml:"consumption" json:"consumption"`
}

// For returns the average of one category, 0 for unknown categories.
func (n NationalAverage) For(c models.Category) float64 {
	switch c {
	case models.CategoryTransport:
		return n.Transport
	case models.CategoryFood:
		return n.Food
	case models.CategoryEnergy:
		return n.Energy
	case models.CategoryConsumption:
		return n.Consumption
	}
	return 0
}

// Factor is a seed row for the emission_factors table.
type Factor struct {
	Category     models.Category `yaml:"category"`
	Subcategory  string          `yaml:"subcategory"`
	ActivityName string          `yaml:"activity_name"`
	Unit         string          `yaml:"unit"`
	CO2Factor    float64         `yaml:"co2_factor"`
	Source       string          `yaml:"source"`
}

// Catalog is the whole reference document.
type Catalog struct {
	Version         string          `yaml:"version"`
	EmissionFactors []Factor        `yaml:"emission_factors"`
	NationalAverage NationalAverage `yaml:"national_average"`
	Recommendations Recommendations `yaml:"recommendations"`
}

// Default returns the embedded catalog. The embedded document is validated
// by the package tests, so a decoding failure here is a build defect.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultData))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadFile reads a catalog from path. An empty path yields the default catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if c.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidCatalog)
	}
	for i, f := range c.EmissionFactors {
		if !f.Category.Valid() {
			return fmt.Errorf("%w: factor %d has unknown category %q", ErrInvalidCatalog, i, f.Category)
		}
		if f.ActivityName == "" || f.Unit == "" {
			return fmt.Errorf("%w: factor %d is missing a name or unit", ErrInvalidCatalog, i)
		}
		if f.CO2Factor <= 0 {
			return fmt.Errorf("%w: factor %q must be positive", ErrInvalidCatalog, f.ActivityName)
		}
	}

	avg := c.NationalAverage
	if avg.Total < 0 || avg.Transport < 0 || avg.Food < 0 || avg.Energy < 0 || avg.Consumption < 0 {
		return fmt.Errorf("%w: national averages must not be negative", ErrInvalidCatalog)
	}

	if len(c.Recommendations.Generic) != GenericRecommendationCount {
		return fmt.Errorf("%w: expected %d generic recommendations, got %d",
			ErrInvalidCatalog, GenericRecommendationCount, len(c.Recommendations.Generic))
	}
	if err := validateRecommendations("generic", c.Recommendations.Generic); err != nil {
		return err
	}
	for category := range c.Recommendations.ByCategory {
		if !category.Valid() {
			return fmt.Errorf("%w: recommendations for unknown category %q", ErrInvalidCatalog, category)
		}
	}
	for _, category := range models.Categories {
		recs := c.Recommendations.ByCategory[category]
		if len(recs) != CategoryRecommendationCount {
			return fmt.Errorf("%w: expected %d %s recommendations, got %d",
				ErrInvalidCatalog, CategoryRecommendationCount, category, len(recs))
		}
		if err := validateRecommendations(string(category), recs); err != nil {
			return err
		}
	}
	return nil
}

func validateRecommendations(list string, recs []Recommendation) error {
	for i, r := range recs {
		if r.Title == "" {
			return fmt.Errorf("%w: %s recommendation %d has no title", ErrInvalidCatalog, list, i)
		}
		if r.Impact.Rank() == 0 {
			return fmt.Errorf("%w: %s recommendation %q has unknown impact %q", ErrInvalidCatalog, list, r.Title, r.Impact)
		}
		if r.Ease.Rank() == 0 {
			return fmt.Errorf("%w: %s recommendation %q has unknown ease %q", ErrInvalidCatalog, list, r.Title, r.Ease)
		}
	}
	return nil
}

// Generic returns a copy of the generic recommendation list.
func (c *Catalog) Generic() []Recommendation {
	return append([]Recommendation(nil), c.Recommendations.Generic...)
}

// ForCategory returns a copy of the recommendations of one category.
func (c *Catalog) ForCategory(category models.Category) []Recommendation {
	return append([]Recommendation(nil), c.Recommendations.ByCategory[category]...)
}

// Factors converts the seed rows into models ready to insert.
func (c *Catalog) Factors() []models.EmissionFactor {
	out := make([]models.EmissionFactor, len(c.EmissionFactors))
	for i, f := range c.EmissionFactors {
		out[i] = models.EmissionFactor{
			Category:     f.Category,
			Subcategory:  f.Subcategory,
			ActivityName: f.ActivityName,
			Unit:         f.Unit,
			CO2Factor:    f.CO2Factor,
			Source:       f.Source,
		}
	}
	return out
}
