package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/orders"
)

func addListFlags(cmd *cobra.Command, sortField string) {
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("limit", 10, "rows per page")
	cmd.Flags().String("search", "", "filter by name")
	cmd.Flags().String("sort", sortField, "sort field")
	cmd.Flags().String("order", "", "sort order: asc or desc")
}

func listParams(cmd *cobra.Command) client.ListParams {
	var p client.ListParams
	p.Page, _ = cmd.Flags().GetInt("page")
	p.Limit, _ = cmd.Flags().GetInt("limit")
	p.Search, _ = cmd.Flags().GetString("search")
	p.SortField, _ = cmd.Flags().GetString("sort")
	p.SortOrder, _ = cmd.Flags().GetString("order")
	return p
}

func pageLine(p client.Pagination) string {
	return fmt.Sprintf("page %d/%d · %d total", p.Page, max(p.TotalPages, 1), p.Total)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// confirmDelete asks before deleting unless --yes was given.
func confirmDelete(cmd *cobra.Command, kind, name string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	return confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Delete %s %q?", kind, name))
}

func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "List, show and delete products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			page, err := b.API.ListProducts(cmd.Context(), listParams(cmd))
			if err != nil {
				return explain(err)
			}
			out := cmd.OutOrStdout()
			if b.Context.Format != FormatText {
				return printValue(out, b.Context.Format, page)
			}
			if len(page.Products) == 0 {
				fmt.Fprintln(out, "No products found.")
				return nil
			}
			rows := make([][]string, 0, len(page.Products))
			for _, p := range page.Products {
				rows = append(rows, []string{
					p.ID,
					p.Name,
					categoryName(p.Category),
					orders.Rupees(p.Price),
					strconv.Itoa(len(p.Variants)),
					orDash(p.Status),
				})
			}
			printTable(out, []string{"ID", "Name", "Category", "Price", "Variants", "Status"}, rows)
			fmt.Fprintln(out, pageLine(page.Pagination))
			return nil
		},
	}
	addListFlags(list, "")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			p, err := b.API.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			if b.Context.Format != FormatText {
				return printValue(cmd.OutOrStdout(), b.Context.Format, p)
			}
			variants := make([]string, 0, len(p.Variants))
			for _, v := range p.Variants {
				variants = append(variants, fmt.Sprintf("%s %s", v.Name, orders.Rupees(v.Price)))
			}
			printFields(cmd.OutOrStdout(), [][2]string{
				{"ID", p.ID},
				{"Name", p.Name},
				{"Category", categoryName(p.Category)},
				{"Price", orders.Rupees(p.Price)},
				{"Variants", orDash(strings.Join(variants, ", "))},
				{"Status", orDash(p.Status)},
				{"Featured", yesNo(p.IsFeatured)},
				{"Hot", yesNo(p.IsHotProduct)},
				{"Best seller", yesNo(p.IsBestSeller)},
				{"Images", strconv.Itoa(len(p.Images))},
			})
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			ctx := cmd.Context()
			p, err := b.API.GetProduct(ctx, args[0])
			if err != nil {
				return explain(err)
			}
			ok, err := confirmDelete(cmd, "product", p.Name)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if err := b.API.DeleteProduct(ctx, p.ID); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted product %q.\n", p.Name)
			return nil
		},
	}
	del.Flags().BoolP("yes", "y", false, "delete without asking")

	cmd.AddCommand(list, get, del)
	return cmd
}

func categoryName(c *client.CategoryRef) string {
	if c == nil || c.Name == "" {
		return "N/A"
	}
	return c.Name
}

func newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "List, show and delete categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			page, err := b.API.ListCategories(cmd.Context(), listParams(cmd))
			if err != nil {
				return explain(err)
			}
			out := cmd.OutOrStdout()
			if b.Context.Format != FormatText {
				return printValue(out, b.Context.Format, page)
			}
			if len(page.Categories) == 0 {
				fmt.Fprintln(out, "No categories found.")
				return nil
			}
			printCategories(cmd, page.Categories)
			fmt.Fprintln(out, pageLine(page.Pagination))
			return nil
		},
	}
	addListFlags(list, "displayOrder")

	topLevel := &cobra.Command{
		Use:   "main",
		Short: "List top-level categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			cats, err := b.API.MainCategories(cmd.Context())
			if err != nil {
				return explain(err)
			}
			if b.Context.Format != FormatText {
				return printValue(cmd.OutOrStdout(), b.Context.Format, cats)
			}
			if len(cats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No categories found.")
				return nil
			}
			printCategories(cmd, cats)
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			c, err := b.API.GetCategory(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			if b.Context.Format != FormatText {
				return printValue(cmd.OutOrStdout(), b.Context.Format, c)
			}
			created := "-"
			if !c.CreatedAt.IsZero() {
				created = c.CreatedAt.Local().Format("2 Jan 2006 15:04")
			}
			parent := "-"
			if c.ParentCategory != nil {
				parent = orDash(c.ParentCategory.Name)
			}
			printFields(cmd.OutOrStdout(), [][2]string{
				{"ID", c.ID},
				{"Name", c.Name},
				{"Type", orDash(c.Type)},
				{"Parent", parent},
				{"Order", strconv.Itoa(c.DisplayOrder)},
				{"Active", yesNo(c.IsActive)},
				{"Created", created},
			})
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			ctx := cmd.Context()
			c, err := b.API.GetCategory(ctx, args[0])
			if err != nil {
				return explain(err)
			}
			ok, err := confirmDelete(cmd, "category", c.Name)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if err := b.API.DeleteCategory(ctx, c.ID); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %q.\n", c.Name)
			return nil
		},
	}
	del.Flags().BoolP("yes", "y", false, "delete without asking")

	cmd.AddCommand(list, topLevel, get, del)
	return cmd
}

func printCategories(cmd *cobra.Command, cats []client.Category) {
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		parent := "-"
		if c.ParentCategory != nil {
			parent = orDash(c.ParentCategory.Name)
		}
		rows = append(rows, []string{
			c.ID,
			c.Name,
			orDash(c.Type),
			parent,
			strconv.Itoa(c.DisplayOrder),
			yesNo(c.IsActive),
		})
	}
	printTable(cmd.OutOrStdout(), []string{"ID", "Name", "Type", "Parent", "Order", "Active"}, rows)
}
