package parser

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-catalog-watch/models"
)

// ErrMalformed is wrapped by every decode failure of a catalog response.
var ErrMalformed = errors.New("malformed catalog response")

type catalogResponse struct {
	Items      *[]models.Item     `json:"items"`
	Pagination *models.Pagination `json:"pagination"`
}

// DecodeCatalog decodes a catalog response body. A body that is not JSON or has
// no items array wraps ErrMalformed.
func DecodeCatalog(body []byte) (*models.CatalogPage, error) {
	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if resp.Items == nil {
		return nil, fmt.Errorf("%w: missing items array", ErrMalformed)
	}

	page := &models.CatalogPage{Items: *resp.Items}
	if resp.Pagination != nil {
		page.Pagination = *resp.Pagination
	}
	return page, nil
}
