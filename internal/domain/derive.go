package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Coefficients are kilograms per parsed unit of quantity.
type Coefficients struct {
	CO2   float64
	Waste float64
}

var impactTable = map[Category]Coefficients{
	CategoryProduce: {CO2: 2.5, Waste: 1.2},
	CategoryBakery:  {CO2: 1.8, Waste: 0.8},
	CategoryDairy:   {CO2: 3.2, Waste: 1.5},
	CategoryMeat:    {CO2: 5.4, Waste: 2.1},
}

// CoefficientsFor returns the impact coefficients of a category; unknown categories yield zero.
func CoefficientsFor(c Category) Coefficients {
	return impactTable[c]
}

var leadingNumber = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)`)

// ParseQuantity extracts the leading number of a free-form quantity ("5kg" -> 5).
// Text without a numeric prefix counts as a single unit.
func ParseQuantity(quantity string) float64 {
	m := leadingNumber.FindString(quantity)
	if m == "" {
		return 1
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil {
		return 1
	}
	return v
}

// Round1 rounds half-up to one decimal place.
func Round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// Round2 rounds half-up to cents.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// RoundInt rounds half-up to the nearest integer.
func RoundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}

// EstimateImpact returns the CO2 and waste estimates for a deal.
func EstimateImpact(c Category, quantity string) (co2Kg, wasteKg float64) {
	coef := CoefficientsFor(c)
	q := ParseQuantity(quantity)
	return Round1(coef.CO2 * q), Round1(coef.Waste * q)
}

// DerivePriority applies, in order: perishable category, deep discount, shallow discount.
func DerivePriority(c Category, discountPercent int) Priority {
	switch {
	case c == CategoryMeat || c == CategoryDairy:
		return PriorityHigh
	case discountPercent >= 50:
		return PriorityHigh
	case discountPercent <= 25:
		return PriorityLow
	default:
		return PriorityMedium
	}
}
