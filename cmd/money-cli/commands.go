package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"money/internal/cli"
	"money/internal/controller"
	"money/internal/core"
)

// errFailed marks a command whose notification already told the user
// what went wrong.
var errFailed = errors.New("command failed")

func printNotification(w io.Writer, app *cli.App, n controller.Notification) error {
	if n.Empty() {
		return nil
	}
	fmt.Fprintln(w, app.Terminal.Notification(n))
	if n.Level == controller.LevelError {
		return errFailed
	}
	return nil
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <income|expense> <amount> <description...>",
		Short: "Record an income or an expense",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(args[0])
			if err != nil {
				return err
			}
			form := controller.Form{Amount: args[1], Description: strings.Join(args[2:], " ")}

			return opts.withApp(cmd.Context(), func(app *cli.App) error {
				app.Controller.OpenModal(kind)
				n := app.Controller.Submit(cmd.Context(), form)
				if err := printNotification(opts.out, app, n); err != nil {
					return err
				}
				fmt.Fprintln(opts.out, app.Terminal.Balance(app.Controller.Stats().Balance))
				return nil
			})
		},
	}
}

// promptConfirmer asks on out and reads a y/n answer from in.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(message string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", message)
	answer, _ := p.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}

			var confirmer controller.Confirmer = promptConfirmer{in: bufio.NewReader(opts.in), out: opts.out}
			if yes {
				confirmer = controller.ConfirmFunc(func(string) bool { return true })
			}

			return opts.withApp(cmd.Context(), func(app *cli.App) error {
				n := app.Controller.Delete(cmd.Context(), id, confirmer)
				if n.Empty() {
					fmt.Fprintln(opts.out, "Cancelled")
					return nil
				}
				if err := printNotification(opts.out, app, n); err != nil {
					return err
				}
				fmt.Fprintln(opts.out, app.Terminal.Balance(app.Controller.Stats().Balance))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the balance and transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := core.ParseFilter(filter)
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(app *cli.App) error {
				app.Controller.SetFilter(f)
				v := app.Controller.View()
				fmt.Fprintln(opts.out, app.Terminal.Balance(v.Balance))
				fmt.Fprint(opts.out, app.Terminal.TransactionList(v.Transactions, v.Filter))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", string(core.FilterAll), "Show all, income or expense")
	return cmd
}

type statsOutput struct {
	Balance          core.Money `json:"balance"`
	TotalIncome      core.Money `json:"totalIncome"`
	TotalExpenses    core.Money `json:"totalExpenses"`
	TransactionCount int        `json:"transactionCount"`
	Currency         string     `json:"currency"`
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the balance and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(app *cli.App) error {
				st := app.Controller.Stats()
				if !asJSON {
					fmt.Fprint(opts.out, app.Terminal.Stats(st))
					return nil
				}
				enc := json.NewEncoder(opts.out)
				enc.SetIndent("", "  ")
				return enc.Encode(statsOutput{
					Balance:          st.Balance,
					TotalIncome:      st.TotalIncome,
					TotalExpenses:    st.TotalExpenses,
					TransactionCount: st.Count,
					Currency:         app.Controller.Currency(),
				})
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newThemeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle]",
		Short:     "Show or toggle the display theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(app *cli.App) error {
				if len(args) == 1 {
					n := app.Controller.ToggleTheme(cmd.Context())
					if err := printNotification(opts.out, app, n); err != nil {
						return err
					}
				}
				fmt.Fprintf(opts.out, "Theme: %s\n", app.Controller.Theme())
				return nil
			})
		},
	}
}
