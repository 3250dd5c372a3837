package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/GillJordan/Home-expense/internal/agent"
	"github.com/GillJordan/Home-expense/internal/core"
)

var addFlags core.Submission

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an expense",
	Long: `Record an expense. While the gateway is unreachable the expense is
queued locally and sent on the next run that finds it online.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sub := addFlags
		if sub.Date == "" {
			sub.Date = time.Now().Format(core.InputDateLayout)
		}
		res, err := current.agent.Submit(cmd.Context(), sub)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.Queued {
			fmt.Fprintf(out, "Gateway offline: expense for %s queued\n", sub.Date)
			return nil
		}
		fmt.Fprintln(out, "Row added")
		return printRows(out, []core.Row{res.Row})
	},
}

var searchStart, searchEnd string

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Find expenses by product text and date range",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := ""
		if len(args) == 1 {
			text = args[0]
		}
		q, err := core.NewQuery(text, searchStart, searchEnd)
		if err != nil {
			return err
		}
		res, src, err := current.agent.Search(cmd.Context(), q)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		note(out, src)
		if err := printRows(out, res.Rows); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d rows, total debit %s\n", len(res.Rows), res.TotalDebit.StringFixed(2))
		return nil
	},
}

var dayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "List the expenses of one day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := time.Now().Format(core.InputDateLayout)
		if len(args) == 1 {
			date = args[0]
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return err
		}
		rows, src, err := current.agent.Day(cmd.Context(), d)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		note(out, src)
		return printRows(out, rows)
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Show the known products, beneficiaries, payers and shops",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, src, err := current.agent.Suggestions(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		note(out, src)
		fmt.Fprintf(out, "Products: %s\n", strings.Join(s.Products, ", "))
		fmt.Fprintf(out, "For:      %s\n", strings.Join(s.ForList, ", "))
		fmt.Fprintf(out, "By:       %s\n", strings.Join(s.ByList, ", "))
		fmt.Fprintf(out, "From:     %s\n", strings.Join(s.FromList, ", "))
		return nil
	},
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addFlags.Date, "date", "", "expense date, YYYY-MM-DD (default today)")
	f.StringVar(&addFlags.Debit, "debit", "", "amount spent")
	f.StringVar(&addFlags.Product, "product", "", "what was bought")
	f.StringVar(&addFlags.For, "for", "", "who it was for")
	f.StringVar(&addFlags.Quantity, "quantity", "", "how many")
	f.StringVar(&addFlags.By, "by", "", "who paid")
	f.StringVar(&addFlags.From, "from", "", "where it was bought")

	searchCmd.Flags().StringVar(&searchStart, "start", "", "first day, YYYY-MM-DD")
	searchCmd.Flags().StringVar(&searchEnd, "end", "", "last day, YYYY-MM-DD")

	rootCmd.AddCommand(addCmd, searchCmd, dayCmd, suggestCmd)
}

func note(w io.Writer, src agent.Source) {
	if src == agent.SourceMirror {
		fmt.Fprintln(w, "(offline: answered from the local mirror)")
	}
}

var rowColumns = []string{core.ColumnDate, core.ColumnDebit, core.ColumnProduct, core.ColumnFor, core.ColumnQuantity, core.ColumnBy, core.ColumnFrom}

func printRows(w io.Writer, rows []core.Row) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No expenses.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rowColumns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(rowColumns))
		for i, c := range rowColumns {
			cells[i] = core.SchemaV1.Cell(row, c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
