package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"money/internal/cli"
	"money/internal/controller"
)

type exportTransaction struct {
	ID          int64  `json:"id" yaml:"id"`
	Type        string `json:"type" yaml:"type"`
	Amount      string `json:"amount" yaml:"amount"`
	Description string `json:"description" yaml:"description"`
	Date        string `json:"date" yaml:"date"`
}

type exportDocument struct {
	Currency     string              `json:"currency" yaml:"currency"`
	Balance      string              `json:"balance" yaml:"balance"`
	Theme        string              `json:"theme" yaml:"theme"`
	ExportedAt   string              `json:"exportedAt" yaml:"exported_at"`
	Transactions []exportTransaction `json:"transactions" yaml:"transactions"`
}

func newExportDocument(v controller.View, at time.Time) exportDocument {
	doc := exportDocument{
		Currency:     v.Currency,
		Balance:      v.Balance.String(),
		Theme:        string(v.Theme),
		ExportedAt:   at.UTC().Format(time.RFC3339),
		Transactions: make([]exportTransaction, 0, len(v.Transactions)),
	}
	for _, t := range v.Transactions {
		doc.Transactions = append(doc.Transactions, exportTransaction{
			ID:          t.ID,
			Type:        string(t.Kind),
			Amount:      t.Amount.String(),
			Description: t.Description,
			Date:        t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return doc
}

func writeExport(w io.Writer, doc exportDocument, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q: must be json or yaml", format)
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger to stdout as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "yaml" && format != "yml" {
				return fmt.Errorf("unknown export format %q: must be json or yaml", format)
			}
			return opts.withApp(cmd.Context(), func(app *cli.App) error {
				return writeExport(opts.out, newExportDocument(app.Controller.View(), time.Now()), format)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format (json or yaml)")
	return cmd
}
