package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListProducts fetches GET /products/getAdminProduct.
func (a *API) ListProducts(ctx context.Context, p ListParams) (*ProductPage, error) {
	resp, err := a.send(ctx, Request{
		Method: http.MethodGet,
		Path:   "/products/getAdminProduct",
		Query:  p.values(),
	})
	if err != nil {
		return nil, err
	}
	var out ProductPage
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProduct fetches GET /products/getProduct/{id}.
func (a *API) GetProduct(ctx context.Context, id string) (*Product, error) {
	resp, err := a.send(ctx, Request{
		Method: http.MethodGet,
		Path:   "/products/getProduct/" + url.PathEscape(id),
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Product *Product `json:"product"`
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, newAPIError(resp.Method, resp.Path, http.StatusNotFound, nil)
	}
	return out.Product, nil
}

// DeleteProduct sends DELETE /products/deleteProduct/{id}.
func (a *API) DeleteProduct(ctx context.Context, id string) error {
	_, err := a.send(ctx, Request{
		Method: http.MethodDelete,
		Path:   "/products/deleteProduct/" + url.PathEscape(id),
	})
	return err
}

// ListCategories fetches GET /category/getAllCategories.
func (a *API) ListCategories(ctx context.Context, p ListParams) (*CategoryPage, error) {
	resp, err := a.send(ctx, Request{
		Method: http.MethodGet,
		Path:   "/category/getAllCategories",
		Query:  p.values(),
	})
	if err != nil {
		return nil, err
	}
	var out CategoryPage
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCategory fetches GET /category/getCategory/{id}.
func (a *API) GetCategory(ctx context.Context, id string) (*Category, error) {
	resp, err := a.send(ctx, Request{
		Method: http.MethodGet,
		Path:   "/category/getCategory/" + url.PathEscape(id),
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Category *Category `json:"category"`
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if out.Category == nil {
		return nil, newAPIError(resp.Method, resp.Path, http.StatusNotFound, nil)
	}
	return out.Category, nil
}

// MainCategories fetches GET /category/getMainCategories.
func (a *API) MainCategories(ctx context.Context) ([]Category, error) {
	resp, err := a.send(ctx, Request{Method: http.MethodGet, Path: "/category/getMainCategories"})
	if err != nil {
		return nil, err
	}
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// DeleteCategory sends DELETE /category/deleteCategory/{id}.
func (a *API) DeleteCategory(ctx context.Context, id string) error {
	_, err := a.send(ctx, Request{
		Method: http.MethodDelete,
		Path:   "/category/deleteCategory/" + url.PathEscape(id),
	})
	return err
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.SortField != "" {
		v.Set("sortField", p.SortField)
	}
	if p.SortOrder != "" {
		v.Set("sortOrder", p.SortOrder)
	}
	return v
}
