package openfoodfacts

import (
	"fmt"

	"github.com/iyhunko/eco-consumo/internal/model"
)

const (
	UnknownName           = "Nome desconhecido"
	UnknownEcoScore       = "Não disponível"
	NoDetailedDescription = "Dados detalhados não disponíveis."
	NoWarning             = "Sem aviso específico."
	UnknownImpact         = "N/A"
)

// Normalize maps an upstream product into a product record.
// The barcode is not part of the payload and must be set by the caller.
func Normalize(p *Product) *model.Product {
	product := &model.Product{
		Name:                UnknownName,
		EcoScore:            UnknownEcoScore,
		EcoScoreDescription: NoDetailedDescription,
	}
	if p == nil {
		return product
	}

	if p.ProductName != nil && *p.ProductName != "" {
		product.Name = *p.ProductName
	}
	if p.EcoscoreGrade != nil && *p.EcoscoreGrade != "" {
		product.EcoScore = *p.EcoscoreGrade
	}
	if !p.EcoscoreData.Empty() && !p.EcoscoreData.Agribalyse.Empty() {
		product.EcoScoreDescription = describeImpacts(p.EcoscoreData.Agribalyse)
	}

	return product
}

func describeImpacts(a *Agribalyse) string {
	warning := NoWarning
	if a.Warning != nil {
		warning = *a.Warning
	}

	carbon, water, land := UnknownImpact, UnknownImpact, UnknownImpact
	if a.Impacts != nil {
		carbon = impactOrDefault(a.Impacts.Carbon)
		water = impactOrDefault(a.Impacts.Water)
		land = impactOrDefault(a.Impacts.Land)
	}

	return fmt.Sprintf("%s Impactos estimados: CO2e: %sg, Água: %sL, Uso de terra: %sm².", warning, carbon, water, land)
}

func impactOrDefault(v *ImpactValue) string {
	if v == nil {
		return UnknownImpact
	}
	return string(*v)
}
