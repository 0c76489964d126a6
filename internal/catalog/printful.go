package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

// PrintfulClient reads the store's sync products from the Printful API.
type PrintfulClient struct {
	remote *remote
}

func NewPrintfulClient(baseURL, token string, client *http.Client) *PrintfulClient {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return &PrintfulClient{remote: newRemote("printful", baseURL, header, client)}
}

type printfulSyncProduct struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type printfulSyncVariant struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	RetailPrice flexPrice `json:"retail_price"`
	Currency    string    `json:"currency"`
	Size        string    `json:"size"`
	Color       string    `json:"color"`
	Files       []struct {
		Type       string `json:"type"`
		PreviewURL string `json:"preview_url"`
	} `json:"files"`
}

type printfulListResponse struct {
	Code   int                   `json:"code"`
	Result []printfulSyncProduct `json:"result"`
}

type printfulProductResponse struct {
	Code   int `json:"code"`
	Result struct {
		SyncProduct  printfulSyncProduct   `json:"sync_product"`
		SyncVariants []printfulSyncVariant `json:"sync_variants"`
	} `json:"result"`
}

// List returns product summaries. Prices live on the variants, so they are
// only filled in by Get.
func (c *PrintfulClient) List(ctx context.Context) ([]domain.Product, error) {
	var resp printfulListResponse
	if err := c.remote.getJSON(ctx, "/store/products", url.Values{"limit": {"100"}}, &resp); err != nil {
		return nil, fmt.Errorf("printful list: %w", err)
	}

	products := make([]domain.Product, 0, len(resp.Result))
	for _, sp := range resp.Result {
		products = append(products, domain.Product{
			ID:     strconv.FormatInt(sp.ID, 10),
			Source: domain.SourcePrintful,
			Name:   sp.Name,
			Images: nonEmpty(sp.ThumbnailURL),
		})
	}
	return products, nil
}

func (c *PrintfulClient) Get(ctx context.Context, id string) (*domain.Product, error) {
	var resp printfulProductResponse
	if err := c.remote.getJSON(ctx, "/store/products/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("printful product %s: %w", id, err)
	}

	sp := resp.Result.SyncProduct
	p := &domain.Product{
		ID:     strconv.FormatInt(sp.ID, 10),
		Source: domain.SourcePrintful,
		Name:   sp.Name,
		Images: nonEmpty(sp.ThumbnailURL),
	}
	for i, sv := range resp.Result.SyncVariants {
		if i == 0 {
			p.Price = sv.RetailPrice.Decimal
			p.Currency = sv.Currency
		}
		p.Variants = append(p.Variants, domain.Variant{
			ID:    strconv.FormatInt(sv.ID, 10),
			Size:  sv.Size,
			Color: sv.Color,
			Price: sv.RetailPrice.Decimal,
		})
		for _, f := range sv.Files {
			if f.Type == "preview" && f.PreviewURL != "" {
				p.Images = append(p.Images, f.PreviewURL)
			}
		}
	}
	return p, nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
