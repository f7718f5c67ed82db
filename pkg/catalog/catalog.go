// Package catalog holds the static commodity table behind form suggestions.
//
// The table is parsed once from the embedded products.yaml when the package
// is initialised and is read-only afterwards, so the package-level query
// functions are safe for concurrent use.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category groups products by the regulatory regime they fall under.
type Category string

const (
	CategoryEUDR         Category = "EUDR"
	CategoryAgricultural Category = "Agricultural"
	CategoryIndustrial   Category = "Industrial"
)

// RiskLevel is the deforestation risk attached to a product.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ProductMapping is one catalog entry.
type ProductMapping struct {
	ProductType           string    `yaml:"productType" json:"productType"`
	ProductName           string    `yaml:"productName" json:"productName"`
	HSCode                string    `yaml:"hsCode" json:"hsCode"`
	Category              Category  `yaml:"category" json:"category"`
	RiskLevel             RiskLevel `yaml:"riskLevel" json:"riskLevel"`
	CommonDescriptions    []string  `yaml:"commonDescriptions" json:"commonDescriptions"`
	TypicalUnits          []string  `yaml:"typicalUnits" json:"typicalUnits"`
	TypicalCertifications []string  `yaml:"typicalCertifications" json:"typicalCertifications"`
	RiskFactors           []string  `yaml:"riskFactors" json:"riskFactors"`
}

func (p ProductMapping) clone() ProductMapping {
	p.CommonDescriptions = append([]string(nil), p.CommonDescriptions...)
	p.TypicalUnits = append([]string(nil), p.TypicalUnits...)
	p.TypicalCertifications = append([]string(nil), p.TypicalCertifications...)
	p.RiskFactors = append([]string(nil), p.RiskFactors...)
	return p
}

// Catalog is an immutable, ordered list of product mappings.
type Catalog struct {
	products []ProductMapping
}

type catalogFile struct {
	Products []ProductMapping `yaml:"products"`
}

//go:embed products.yaml
var productsYAML string

var defaultCatalog = MustLoad(strings.NewReader(productsYAML))

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	return defaultCatalog
}

// Load parses a YAML catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	for i, p := range file.Products {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("catalog: entry %d (%s): %w", i, p.ProductName, err)
		}
	}
	return &Catalog{products: file.Products}, nil
}

// MustLoad is Load for data shipped with the binary; it panics on error.
func MustLoad(r io.Reader) *Catalog {
	c, err := Load(r)
	if err != nil {
		panic(err)
	}
	return c
}

func (p ProductMapping) validate() error {
	if p.ProductType == "" || p.ProductName == "" {
		return fmt.Errorf("productType and productName are required")
	}
	switch p.Category {
	case CategoryEUDR, CategoryAgricultural, CategoryIndustrial:
	default:
		return fmt.Errorf("unknown category %q", p.Category)
	}
	switch p.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return fmt.Errorf("unknown risk level %q", p.RiskLevel)
	}
	return nil
}

// Products returns every entry in declaration order.
func (c *Catalog) Products() []ProductMapping {
	out := make([]ProductMapping, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p.clone())
	}
	return out
}

// ProductTypes lists the distinct product types in first-seen order.
func (c *Catalog) ProductTypes() []string {
	var types []string
	for _, p := range c.products {
		types = appendUnique(types, p.ProductType)
	}
	return types
}

func (c *Catalog) byType(productType string) []ProductMapping {
	want := strings.ToLower(productType)
	var out []ProductMapping
	for _, p := range c.products {
		if strings.ToLower(p.ProductType) == want {
			out = append(out, p)
		}
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		seen := false
		for _, d := range dst {
			if d == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}
