package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	// MinCustomEvaluation is the lowest accepted personal rating.
	MinCustomEvaluation = 0.0
	// MaxCustomEvaluation is the highest accepted personal rating.
	MaxCustomEvaluation = 10.0
)

// Product is a cached product record keyed by its barcode.
// Everything except CustomEvaluation is written once, when the product is first fetched.
type Product struct {
	ID                  uuid.UUID
	Barcode             string
	Name                string
	EcoScore            string
	EcoScoreDescription string
	CustomEvaluation    *float64
	UpdatedAt           time.Time
	CreatedAt           time.Time
}

// InitMeta initializes the product metadata including ID and timestamps.
func (p *Product) InitMeta() {
	p.ID = uuid.New()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
}

// ValidCustomEvaluation reports whether value lies in the closed rating interval.
func ValidCustomEvaluation(value float64) bool {
	if math.IsNaN(value) {
		return false
	}
	return value >= MinCustomEvaluation && value <= MaxCustomEvaluation
}
