package storefront

import (
	"context"

	"github.com/MrEthical07/storefront/api"
)

// ListProducts returns one page of the catalog matching f.
func (c *Client) ListProducts(ctx context.Context, f api.ProductFilters) (api.ProductPage, error) {
	return c.api.ListProducts(ctx, f)
}

// GetProduct returns the product with the given id.
func (c *Client) GetProduct(ctx context.Context, id string) (api.Product, error) {
	return c.api.GetProduct(ctx, id)
}

// ListCategories returns every product category.
func (c *Client) ListCategories(ctx context.Context) ([]api.Category, error) {
	return c.api.ListCategories(ctx)
}

// ListOrders returns the signed-in account's orders, newest first.
func (c *Client) ListOrders(ctx context.Context, page, limit int) (api.OrderPage, error) {
	return c.api.ListOrders(ctx, page, limit)
}

// GetOrder returns one of the signed-in account's orders.
func (c *Client) GetOrder(ctx context.Context, id string) (api.Order, error) {
	return c.api.GetOrder(ctx, id)
}
