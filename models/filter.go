package models

import (
	"net/url"
	"strconv"
)

// Known size ids.
const (
	SizeXS   = 206
	SizeS    = 207
	SizeM    = 208
	SizeL    = 209
	SizeXL   = 210
	SizeXXL  = 211
	SizeXXXL = 212
)

// Known catalog (category) ids.
const (
	CategoryMen     = 5
	CategoryClothes = 2050
)

// Known item condition ids.
const (
	ConditionNewWithoutTags = 1
	ConditionReallyGood     = 2
	ConditionGood           = 3
	ConditionSatisfactory   = 4
	ConditionNewWithTags    = 6
)

// Filter describes a catalog query. Zero-valued fields are omitted from the query.
type Filter struct {
	SearchText string `yaml:"search_text" json:"search_text,omitempty"`
	Sizes      []int  `yaml:"sizes" json:"sizes,omitempty"`
	Categories []int  `yaml:"categories" json:"categories,omitempty"`
	Conditions []int  `yaml:"conditions" json:"conditions,omitempty"`
	Brands     []int  `yaml:"brands" json:"brands,omitempty"`
	PriceFrom  *int   `yaml:"price_from" json:"price_from,omitempty"`
	PriceTo    *int   `yaml:"price_to" json:"price_to,omitempty"`
}

// Values builds the query parameters for the filter. Repeated parameters keep
// the input order.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.SearchText != "" {
		v.Set("search_text", f.SearchText)
	}
	addInts(v, "size_id[]", f.Sizes)
	addInts(v, "catalog[]", f.Categories)
	addInts(v, "status_ids[]", f.Conditions)
	addInts(v, "brand_id[]", f.Brands)
	if f.PriceFrom != nil {
		v.Set("price_from", strconv.Itoa(*f.PriceFrom))
	}
	if f.PriceTo != nil {
		v.Set("price_to", strconv.Itoa(*f.PriceTo))
	}
	return v
}

func addInts(v url.Values, key string, ids []int) {
	for _, id := range ids {
		v.Add(key, strconv.Itoa(id))
	}
}
