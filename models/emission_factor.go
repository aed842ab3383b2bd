package models

import "fmt"

// Category is the top-level grouping of emission factors.
type Category string

const (
	CategoryTransport   Category = "transport"
	CategoryFood        Category = "food"
	CategoryEnergy      Category = "energy"
	CategoryConsumption Category = "consumption"
)

// Categories lists the known categories in display order.
var Categories = []Category{
	CategoryTransport,
	CategoryFood,
	CategoryEnergy,
	CategoryConsumption,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTransport, CategoryFood, CategoryEnergy, CategoryConsumption:
		return true
	}
	return false
}

// ParseCategory converts raw user input into a known Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// EmissionFactor is an immutable reference row: the CO2 mass emitted per unit
// of a given activity. Rows are seeded once and never updated.
type EmissionFactor struct {
	ID           uint     `gorm:"primaryKey"`
	Category     Category `gorm:"size:50;not null;index"`
	Subcategory  string   `gorm:"size:50;not null"`
	ActivityName string   `gorm:"size:100;not null"`
	Unit         string   `gorm:"size:20;not null"`
	CO2Factor    float64  `gorm:"column:co2_factor;not null"`
	Source       string   `gorm:"size:100"`
}

func (f *EmissionFactor) TableName() string {
	return "emission_factors"
}
