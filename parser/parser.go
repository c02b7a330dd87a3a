// Package parser turns raw marketplace responses into typed values.
package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-catalog-watch/models"
)

// ValidateItem ensures the catalog payload carried the fields sinks rely on.
func ValidateItem(it *models.Item) error {
	if it == nil {
		return fmt.Errorf("item is nil")
	}
	if it.ID <= 0 {
		return fmt.Errorf("item missing id")
	}
	if strings.TrimSpace(it.Title) == "" {
		return fmt.Errorf("item %d missing title", it.ID)
	}
	if strings.TrimSpace(it.Price) == "" {
		return fmt.Errorf("item %d missing price", it.ID)
	}
	return nil
}

// NormalizePrice trims whitespace and drops a trailing currency code or symbol.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	for _, sym := range []string{"€", "£", "$", "EUR", "GBP", "USD"} {
		price = strings.ReplaceAll(price, sym, "")
	}
	return strings.TrimSpace(price)
}

// NormalizeItem applies the text normalisation used before an item is written out.
func NormalizeItem(it *models.Item) {
	it.Title = strings.TrimSpace(it.Title)
	it.BrandTitle = strings.TrimSpace(it.BrandTitle)
	it.Price = NormalizePrice(it.Price)
}
