package cmd

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/mock"
)

func (e *testEnv) product(name string) client.Product {
	e.t.Helper()
	list, _ := e.server.Store().Products(mock.ParseListQuery(url.Values{"search": {name}}))
	require.Len(e.t, list, 1)
	return list[0]
}

func TestProductsList(t *testing.T) {
	env := newTestEnv(t)
	env.login()

	out, _, err := env.run("", "products", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Paneer Tikka")
	assert.Contains(t, out, "Starters")
	assert.Contains(t, out, "₹220.00")
	assert.Contains(t, out, "page 1/1 · 8 total")

	out, _, err = env.run("", "products", "list", "--limit", "3", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "page 2/3 · 8 total")

	out, _, err = env.run("", "products", "list", "--search", "lassi", "-o", "json")
	require.NoError(t, err)
	var page client.ProductPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Lassi", page.Products[0].Name)
	assert.Len(t, page.Products[0].Variants, 2)

	out, _, err = env.run("", "products", "list", "--search", "pizza")
	require.NoError(t, err)
	assert.Contains(t, out, "No products found.")
}

func TestProductsGet(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	p := env.product("Butter Chicken")

	out, _, err := env.run("", "products", "get", p.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Butter Chicken")
	assert.Contains(t, out, "Half ₹180.00, Full ₹320.00")
	assert.Contains(t, out, "Main Course")

	_, _, err = env.run("", "products", "get", "missing")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestProductsDeleteAsksFirst(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	p := env.product("Masala Chai")

	out, errOut, err := env.run("n\n", "products", "delete", p.ID)
	require.NoError(t, err)
	assert.Contains(t, errOut, `Delete product "Masala Chai"? [y/N]`)
	assert.Contains(t, out, "Cancelled.")
	_, err = env.server.Store().Product(p.ID)
	require.NoError(t, err)

	out, _, err = env.run("y\n", "products", "delete", p.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted product "Masala Chai".`)
	_, err = env.server.Store().Product(p.ID)
	assert.ErrorIs(t, err, mock.ErrNotFound)
}

func TestProductsDeleteYes(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	p := env.product("Dal Makhani")

	out, errOut, err := env.run("", "products", "delete", "--yes", p.ID)
	require.NoError(t, err)
	assert.Empty(t, errOut)
	assert.Contains(t, out, `Deleted product "Dal Makhani".`)
}

func TestCategoriesCommands(t *testing.T) {
	env := newTestEnv(t)
	env.login()

	out, _, err := env.run("", "categories", "list")
	require.NoError(t, err)
	for _, name := range []string{"Starters", "Main Course", "Beverages", "Combos"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "page 1/1 · 4 total")

	out, _, err = env.run("", "categories", "main", "-o", "json")
	require.NoError(t, err)
	var mains []client.Category
	require.NoError(t, json.Unmarshal([]byte(out), &mains))
	names := make([]string, 0, len(mains))
	for _, c := range mains {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Starters", "Main Course", "Beverages"}, names)

	var starters client.Category
	for _, c := range mains {
		if c.Name == "Starters" {
			starters = c
		}
	}
	out, _, err = env.run("", "categories", "get", starters.ID, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Starters")
	assert.Contains(t, out, "displayOrder: 1")

	out, _, err = env.run("yes\n", "category", "delete", starters.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted category "Starters".`)

	out, _, err = env.run("", "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "page 1/1 · 3 total")
}
