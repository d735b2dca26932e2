package application

import (
	"context"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ProductsPageSize is how many products the bundle builder lists
const ProductsPageSize = 50

const productsQuery = `query Products($first: Int!) {
  products(first: $first) {
    edges {
      node {
        id
        title
        handle
        status
        totalInventory
        featuredImage {
          url
        }
        variants(first: 25) {
          edges {
            node {
              id
              title
              price
              sku
            }
          }
        }
      }
    }
  }
}`

type productsResponse struct {
	Products struct {
		Edges []struct {
			Node struct {
				ID             string `json:"id"`
				Title          string `json:"title"`
				Handle         string `json:"handle"`
				Status         string `json:"status"`
				TotalInventory int    `json:"totalInventory"`
				FeaturedImage  *struct {
					URL string `json:"url"`
				} `json:"featuredImage"`
				Variants struct {
					Edges []struct {
						Node domain.ProductVariant `json:"node"`
					} `json:"edges"`
				} `json:"variants"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

// ProductsService reads the shop's catalog through the Admin GraphQL API
type ProductsService struct {
	client ports.ShopifyClient
	logger zerolog.Logger
}

// NewProductsService creates a new products service
func NewProductsService(client ports.ShopifyClient, logger zerolog.Logger) *ProductsService {
	return &ProductsService{
		client: client,
		logger: logger,
	}
}

// ListProducts returns the first page of products for the session's shop
func (s *ProductsService) ListProducts(ctx context.Context, session *domain.Session) ([]domain.Product, error) {
	if !session.IsActive() {
		return nil, &domain.InvalidSessionError{Reason: "no active session"}
	}

	var resp productsResponse
	vars := map[string]interface{}{"first": ProductsPageSize}
	if err := s.client.Query(ctx, session.Shop, session.AccessToken, productsQuery, vars, &resp); err != nil {
		s.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to fetch products")
		return nil, &domain.UpstreamError{Op: "products query", Err: err}
	}

	products := make([]domain.Product, 0, len(resp.Products.Edges))
	for _, edge := range resp.Products.Edges {
		n := edge.Node
		p := domain.Product{
			ID:             n.ID,
			Title:          n.Title,
			Handle:         n.Handle,
			Status:         n.Status,
			TotalInventory: n.TotalInventory,
			Variants:       make([]domain.ProductVariant, 0, len(n.Variants.Edges)),
		}
		if n.FeaturedImage != nil {
			p.ImageURL = n.FeaturedImage.URL
		}
		for _, v := range n.Variants.Edges {
			p.Variants = append(p.Variants, v.Node)
		}
		products = append(products, p)
	}

	return products, nil
}
