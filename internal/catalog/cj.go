package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

const cjCurrency = "USD"

// CJClient reads products from the CJdropshipping API.
type CJClient struct {
	remote *remote
}

func NewCJClient(baseURL, accessToken string, client *http.Client) *CJClient {
	header := http.Header{}
	header.Set("CJ-Access-Token", accessToken)
	return &CJClient{remote: newRemote("cjdropshipping", baseURL, header, client)}
}

type cjEnvelope[T any] struct {
	Code    int    `json:"code"`
	Result  bool   `json:"result"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type cjProduct struct {
	PID           string      `json:"pid"`
	ProductNameEn string      `json:"productNameEn"`
	Description   string      `json:"description"`
	ProductImage  string      `json:"productImage"`
	SellPrice     flexPrice   `json:"sellPrice"`
	Variants      []cjVariant `json:"variants"`
}

type cjVariant struct {
	VID              string    `json:"vid"`
	VariantKey       string    `json:"variantKey"`
	VariantSellPrice flexPrice `json:"variantSellPrice"`
}

func (c *CJClient) List(ctx context.Context) ([]domain.Product, error) {
	var resp cjEnvelope[struct {
		List []cjProduct `json:"list"`
	}]
	query := url.Values{"pageNum": {"1"}, "pageSize": {"50"}}
	if err := c.remote.getJSON(ctx, "/product/list", query, &resp); err != nil {
		return nil, fmt.Errorf("cj list: %w", err)
	}
	if !resp.Result {
		return nil, fmt.Errorf("cj list: %w: %s", ErrUpstream, resp.Message)
	}

	products := make([]domain.Product, 0, len(resp.Data.List))
	for _, cp := range resp.Data.List {
		products = append(products, cp.toDomain())
	}
	return products, nil
}

func (c *CJClient) Get(ctx context.Context, id string) (*domain.Product, error) {
	var resp cjEnvelope[*cjProduct]
	if err := c.remote.getJSON(ctx, "/product/query", url.Values{"pid": {id}}, &resp); err != nil {
		return nil, fmt.Errorf("cj product %s: %w", id, err)
	}
	if !resp.Result || resp.Data == nil {
		// CJ reports unknown products in-band
		return nil, fmt.Errorf("cj product %s: %w", id, ErrProductNotFound)
	}

	p := resp.Data.toDomain()
	return &p, nil
}

func (cp cjProduct) toDomain() domain.Product {
	p := domain.Product{
		ID:          cp.PID,
		Source:      domain.SourceCJDropshipping,
		Name:        cp.ProductNameEn,
		Description: cp.Description,
		Price:       cp.SellPrice.Decimal,
		Currency:    cjCurrency,
		Images:      nonEmpty(cp.ProductImage),
	}
	for _, v := range cp.Variants {
		color, size := splitVariantKey(v.VariantKey)
		p.Variants = append(p.Variants, domain.Variant{
			ID:    v.VID,
			Size:  size,
			Color: color,
			Price: v.VariantSellPrice.Decimal,
		})
	}
	return p
}

// splitVariantKey turns CJ's "Black-XL" into color and size. A key without a
// separator is treated as a color.
func splitVariantKey(key string) (color, size string) {
	color, size, _ = strings.Cut(key, "-")
	return strings.TrimSpace(color), strings.TrimSpace(size)
}
