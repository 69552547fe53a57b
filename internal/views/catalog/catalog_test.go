package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

func productPage(page, pages int) *client.ProductPage {
	return &client.ProductPage{
		Products: []client.Product{
			{ID: "p1", Name: "Paneer Tikka", Price: 220, Category: &client.CategoryRef{Name: "Starters"}, IsFeatured: true},
			{ID: "p2", Name: "Lassi", Price: 60, Variants: []client.ProductVariant{{Name: "Sweet"}, {Name: "Mango"}}},
		},
		Pagination: client.Pagination{Page: page, Limit: PageSize, Total: 12, TotalPages: pages},
	}
}

func TestProductsTable(t *testing.T) {
	m := New(Products)
	assert.Equal(t, client.ListParams{Page: 1, Limit: PageSize}, m.Params())

	m.SetLoading()
	assert.Contains(t, m.View(), "Loading")

	m.SetProducts(productPage(1, 2))
	assert.False(t, m.Loading())
	require.Len(t, m.Items(), 2)

	v := m.View()
	for _, want := range []string{"Products", "page 1/2", "Paneer Tikka", "Starters", "₹220.00", "featured"} {
		assert.Contains(t, v, want)
	}

	it, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, Item{ID: "p1", Name: "Paneer Tikka"}, it)
}

func TestPaging(t *testing.T) {
	m := New(Products)
	assert.False(t, m.NextPage(), "no pagination yet")

	m.SetProducts(productPage(1, 2))
	assert.False(t, m.PrevPage())
	assert.True(t, m.NextPage())
	assert.Equal(t, 2, m.Params().Page)

	m.SetProducts(productPage(2, 2))
	assert.False(t, m.NextPage())
	assert.True(t, m.PrevPage())
	assert.Equal(t, 1, m.Params().Page)
}

func TestCategoriesTable(t *testing.T) {
	m := New(Categories)
	assert.Equal(t, "displayOrder", m.Params().SortField)

	m.SetCategories(&client.CategoryPage{
		Categories: []client.Category{
			{ID: "c1", Name: "Combos", ParentCategory: &client.CategoryRef{Name: "Main Course"}, DisplayOrder: 4},
		},
		Pagination: client.Pagination{Page: 1, Limit: PageSize, Total: 1, TotalPages: 1},
	})
	v := m.View()
	assert.Contains(t, v, "Combos")
	assert.Contains(t, v, "Main Course")
	assert.Contains(t, v, "no")
}

func TestDeleteConfirmation(t *testing.T) {
	m := New(Products)
	assert.False(t, m.AskDelete(), "nothing selected")

	m.SetProducts(productPage(1, 1))
	require.True(t, m.AskDelete())
	it, ok := m.Confirming()
	require.True(t, ok)
	assert.Equal(t, "p1", it.ID)
	assert.Contains(t, m.View(), `Delete "Paneer Tikka"?`)

	m.CancelDelete()
	_, ok = m.Confirming()
	assert.False(t, ok)
}

func TestErrorsAndEmpty(t *testing.T) {
	m := New(Categories)
	m.SetCategories(&client.CategoryPage{})
	assert.Contains(t, m.View(), "No categories found.")

	m.SetError(errors.New("GET /category/getAllCategories: 403 Admin access required"))
	assert.True(t, strings.Contains(m.View(), "Admin access required"))
}
