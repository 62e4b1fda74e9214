package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/tableservice-go/example/products"
	"github.com/AntonStoeckl/tableservice-go/example/shared/config"
	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the product tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, dialect, err := config.OpenSQL(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if _, err = db.ExecContext(cmd.Context(), products.Schema(dialect)); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}

		return printJSON(cmd.OutOrStdout(), map[string]any{"dialect": dialect, "tables": []string{
			products.TableName, products.PricesTableName, products.VariantsTableName,
		}})
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product, --copies inserts several in one transaction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		service, cleanup, err := openProductService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		data, err := productData(cmd)
		if err != nil {
			return err
		}

		copies, _ := cmd.Flags().GetInt("copies")
		ids := make([]int64, 0, copies)

		err = service.InSavepoint(ctx, func(ctx context.Context) error {
			for range max(copies, 1) {
				id, insertErr := service.Insert(ctx, data)
				if insertErr != nil {
					return insertErr
				}

				ids = append(ids, id)
			}

			return nil
		})
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), map[string]any{"ids": ids})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a product, without --stock the stock of its variants is summed up",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		service, cleanup, err := openProductService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		data, err := productData(cmd)
		if err != nil {
			return err
		}

		updated, err := service.Update(ctx, id, data)
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "updated": updated})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Search products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		service, cleanup, err := openProductService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		filter := service.CreateFilter()
		filter.Name, _ = cmd.Flags().GetString("name")
		filter.SKU, _ = cmd.Flags().GetString("sku")
		filter.BrandID, _ = cmd.Flags().GetInt64("brand")

		page, _ := cmd.Flags().GetInt("page")
		perPage, _ := cmd.Flags().GetInt("per-page")
		paging := tableservice.NewPaging(page, perPage)

		items, err := service.Search(ctx, filter, paging)
		if err != nil {
			return err
		}

		count, err := service.SearchCount(ctx, filter)
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), map[string]any{
			"items": items,
			"count": count,
			"page":  paging.Page(),
			"pages": paging.PageCount(count),
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		service, cleanup, err := openProductService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		record, found, err := service.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if !found {
			return fmt.Errorf("product %d: %w", id, errNotFound)
		}

		return printJSON(cmd.OutOrStdout(), record)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		service, cleanup, err := openProductService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := service.DeleteByID(ctx, id)
		if err != nil {
			return err
		}

		deleted, err := result.RowsAffected()
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "deleted": deleted})
	},
}

var slugInCmd = &cobra.Command{
	Use:   "slug-in <slug>",
	Short: "Resolve a slug or an id-prefixed slug to a product id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		service, cleanup, err := openProductService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		id, found, err := service.SlugIn(ctx, args[0])
		if err != nil {
			return err
		}

		if !found {
			return fmt.Errorf("slug %q: %w", args[0], errNotFound)
		}

		return printJSON(cmd.OutOrStdout(), map[string]any{"slug": args[0], "id": id})
	},
}

var slugOutCmd = &cobra.Command{
	Use:   "slug-out <id>",
	Short: "Show the slug of a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		service, cleanup, err := openProductService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		slug, found, err := service.SlugOut(ctx, tableservice.SlugOfID(id))
		if err != nil {
			return err
		}

		if !found {
			return fmt.Errorf("product %d: %w", id, errNotFound)
		}

		return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "slug": slug})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{addCmd, updateCmd} {
		cmd.Flags().String("name", "", "product name")
		cmd.Flags().String("slug", "", "slug, derived from the name when empty")
		cmd.Flags().String("sku", "", "stock keeping unit")
		cmd.Flags().Int64("brand", 0, "brand id")
		cmd.Flags().Int64("stock", 0, "stock")
		cmd.Flags().Bool("enabled", true, "whether the product is enabled")
	}

	addCmd.Flags().Int("copies", 1, "number of products to insert")

	listCmd.Flags().String("name", "", "part of the product name")
	listCmd.Flags().String("sku", "", "stock keeping unit")
	listCmd.Flags().Int64("brand", 0, "brand id")
	listCmd.Flags().Int("page", 1, "page, starting at 1")
	listCmd.Flags().Int("per-page", products.DefaultSearchLimit, "products per page")
}

// productData collects the flags that were set into a payload.
func productData(cmd *cobra.Command) (tableservice.Record, error) {
	data := tableservice.Record{}
	flags := cmd.Flags()

	for _, name := range []string{"name", "slug", "sku"} {
		if flags.Changed(name) {
			value, err := flags.GetString(name)
			if err != nil {
				return nil, err
			}

			data[name] = value
		}
	}

	if flags.Changed("brand") {
		brand, err := flags.GetInt64("brand")
		if err != nil {
			return nil, err
		}

		data["brand_id"] = brand
	}

	if flags.Changed("stock") {
		stock, err := flags.GetInt64("stock")
		if err != nil {
			return nil, err
		}

		data["stock"] = stock
	}

	if flags.Changed("enabled") {
		enabled, err := flags.GetBool("enabled")
		if err != nil {
			return nil, err
		}

		data["enabled"] = 0
		if enabled {
			data["enabled"] = 1
		}
	}

	return data, nil
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}

	return id, nil
}
