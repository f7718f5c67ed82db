package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"p9e.in/veritrace/config"
	"p9e.in/veritrace/pkg/assistant"
	"p9e.in/veritrace/pkg/catalog"
	"p9e.in/veritrace/pkg/certificate"
	"p9e.in/veritrace/pkg/declaration"
	"p9e.in/veritrace/pkg/store"
	"p9e.in/veritrace/pkg/wizard"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := config.Connect(settings, log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := config.Migrations(db); err != nil {
				return fmt.Errorf("could not run migrations: %w", err)
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

func wizardCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Fill in and submit a declaration in the terminal",
		Long: `Walk through the five declaration steps interactively.

The submitted declaration and its certificate are saved to postgres when
DB_DSN is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			// Log lines would tear the terminal UI.
			log = zap.NewNop()
			repo, closeRepo, err := openRepository(settings, log)
			if err != nil {
				return err
			}
			defer closeRepo()

			wf := declaration.New(declaration.WithStore(store.ForOwner(repo, owner)))
			m := wizard.New(wf,
				wizard.WithContext(cmd.Context()),
				wizard.WithAssistant(assistant.New(catalog.Default())),
				// The workflow's store issued and saved the certificate on submit.
				wizard.WithIssuer(func(ctx context.Context, rec declaration.Record) (certificate.Certificate, error) {
					return repo.Certificate(ctx, owner, rec.ID)
				}),
			)

			final, err := tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			if res, ok := final.(wizard.Model).Result(); ok {
				fmt.Fprintln(cmd.OutOrStdout(), wizard.Summary(res))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "cli", "Owner id the declaration is filed under")
	return cmd
}

func catalogCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog [type]",
		Short: "Print the product suggestion catalog",
		Long: `Without arguments, list the product types in the catalog. With a type,
print its products with HS codes, units, certifications and the risk summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := catalog.Default()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				if c, err = catalog.Load(f); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				printTypes(out, c)
				return nil
			}
			return printType(out, c, args[0])
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Load the catalog from a YAML file instead of the built-in one")
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func printTypes(w io.Writer, c *catalog.Catalog) {
	t := newTable("Type", "Products", "Summary")
	for _, typ := range c.ProductTypes() {
		t.Row(typ, strconv.Itoa(len(c.SuggestionsForType(typ))), c.RiskAssessmentSummary(typ))
	}
	fmt.Fprintln(w, t.Render())
}

func printType(w io.Writer, c *catalog.Catalog, productType string) error {
	products := c.SuggestionsForType(productType)
	if len(products) == 0 {
		return fmt.Errorf("no catalog entries for product type %q", productType)
	}

	t := newTable("Product", "HS Code", "Category", "Risk", "Units")
	for _, p := range products {
		t.Row(p.ProductName, p.HSCode, string(p.Category), string(p.RiskLevel), strings.Join(p.TypicalUnits, ", "))
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Certifications: %s\n", strings.Join(c.CertificationSuggestions(productType), ", "))
	fmt.Fprintf(w, "Risk: %s\n", c.RiskAssessmentSummary(productType))
	return nil
}
