// Package genres lists Zaim genres, categories and accounts for building mapping tables
package genres

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"fjacquet/anapay2zaim/cmd/root"
	"fjacquet/anapay2zaim/internal/fileutils"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/zaim"

	"github.com/spf13/cobra"
)

// Lister is satisfied by zaim.Client.
type Lister interface {
	Genres(ctx context.Context) ([]zaim.Genre, error)
	Categories(ctx context.Context) ([]zaim.Category, error)
	Accounts(ctx context.Context) ([]zaim.Account, error)
}

var (
	// GenresFile receives the genre list; empty disables saving
	GenresFile string
	// CategoriesFile receives the category list; empty disables saving
	CategoriesFile string
	// AccountsFile receives the account list; empty disables saving
	AccountsFile string
)

// Cmd represents the genres command
var Cmd = &cobra.Command{
	Use:   "genres",
	Short: "List Zaim genres",
	Long:  `List the genres of the Zaim account. Genre ids are what merchant mappings refer to.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, l Lister, out io.Writer, logger logging.Logger) error {
			return ListGenres(ctx, l, out, GenresFile, logger)
		})
	},
}

// CategoriesCmd represents the categories command
var CategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List Zaim categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, l Lister, out io.Writer, logger logging.Logger) error {
			return ListCategories(ctx, l, out, CategoriesFile, logger)
		})
	},
}

// AccountsCmd represents the accounts command
var AccountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List Zaim accounts",
	Long:  `List the accounts of the Zaim account. An id can be used as zaim.from_account_id.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, l Lister, out io.Writer, logger logging.Logger) error {
			return ListAccounts(ctx, l, out, AccountsFile, logger)
		})
	},
}

func init() {
	Cmd.Flags().StringVarP(&GenresFile, "output", "o", "zaim_genres.json", "Save the list as JSON (empty to skip)")
	CategoriesCmd.Flags().StringVarP(&CategoriesFile, "output", "o", "zaim_categories.json", "Save the list as JSON (empty to skip)")
	AccountsCmd.Flags().StringVarP(&AccountsFile, "output", "o", "zaim_accounts.json", "Save the list as JSON (empty to skip)")
}

func withClient(cmd *cobra.Command, fn func(context.Context, Lister, io.Writer, logging.Logger) error) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	client, err := c.NewZaimClient()
	if err != nil {
		return err
	}
	return fn(cmd.Context(), client, cmd.OutOrStdout(), c.GetLogger())
}

// ListGenres prints every genre and saves the list to path when set.
func ListGenres(ctx context.Context, l Lister, out io.Writer, path string, logger logging.Logger) error {
	genres, err := l.Genres(ctx)
	if err != nil {
		return err
	}
	for _, g := range genres {
		fmt.Fprintf(out, "ID: %d, Name: %s, Category ID: %d\n", g.ID, g.Name, g.CategoryID)
	}
	fmt.Fprintf(out, "Number of genres retrieved: %d\n", len(genres))
	return save(path, map[string]interface{}{"genres": genres}, logger)
}

// ListCategories prints every category and saves the list to path when set.
func ListCategories(ctx context.Context, l Lister, out io.Writer, path string, logger logging.Logger) error {
	categories, err := l.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Fprintf(out, "ID: %d, Name: %s, Mode: %s\n", c.ID, c.Name, c.Mode)
	}
	fmt.Fprintf(out, "Number of categories retrieved: %d\n", len(categories))
	return save(path, map[string]interface{}{"categories": categories}, logger)
}

// ListAccounts prints every account and saves the list to path when set.
func ListAccounts(ctx context.Context, l Lister, out io.Writer, path string, logger logging.Logger) error {
	accounts, err := l.Accounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		fmt.Fprintf(out, "ID: %d, Name: %s, Sort: %d\n", a.ID, a.Name, a.Sort)
	}
	fmt.Fprintf(out, "Number of accounts retrieved: %d\n", len(accounts))
	return save(path, map[string]interface{}{"accounts": accounts}, logger)
}

func save(path string, v interface{}, logger logging.Logger) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling %s: %w", path, err)
	}
	if err := fileutils.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	logger.Info("List saved", logging.F(logging.FieldFile, path))
	return nil
}
