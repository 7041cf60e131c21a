package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/paperxtract/internal/app"
	"github.com/hyperifyio/paperxtract/internal/extract"
	"github.com/hyperifyio/paperxtract/internal/reshape"
	"github.com/hyperifyio/paperxtract/internal/site"
)

func newQueryCmd(g *globalFlags) *cobra.Command {
	var first, inner bool
	cmd := &cobra.Command{
		Use:   "query URL XPATH",
		Short: "Print every match of an XPath expression on a page",
		Example: `  paperxtract query https://link.springer.com/search/page/1 '//h2/a[@class="title"]/@href'
  paperxtract query --html https://example.org/paper '//div[@id="abstract"]'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, expr := args[0], args[1]
			if _, err := extract.Compile(expr); err != nil {
				return err
			}
			x, err := g.extractor(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if inner {
				p, err := x.Page(cmd.Context(), url)
				if err != nil {
					return err
				}
				s, err := extract.InnerHTML(p.Root(), expr)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}
			if first {
				m, ok, err := x.FirstFromURL(cmd.Context(), url, expr)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintln(out, m.String())
				}
				return nil
			}
			matches, err := x.FromURL(cmd.Context(), url, expr)
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Fprintln(out, m.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&first, "first", false, "Print only the first match")
	cmd.Flags().BoolVar(&inner, "html", false, "Print the inner HTML of the first matching element")
	return cmd
}

func newFieldsCmd(g *globalFlags) *cobra.Command {
	var (
		specs []string
		first bool
	)
	cmd := &cobra.Command{
		Use:   "fields URL --field name=xpath...",
		Short: "Extract named fields from a page as JSON",
		Example: `  paperxtract fields https://link.springer.com/article/10.1007/x \
    --field 'title=//h1/text()' --field 'email=//span[@class="authors__contact"]/a/@title'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := parseFieldSpecs(specs)
			if err != nil {
				return err
			}
			x, err := g.extractor(cmd)
			if err != nil {
				return err
			}
			var v any
			if first {
				v, err = x.CleanedFieldsFromURL(cmd.Context(), args[0], fm)
			} else {
				v, err = x.FieldsFromURL(cmd.Context(), args[0], fm)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().StringArrayVarP(&specs, "field", "f", nil, "Field as name=xpath (repeatable)")
	cmd.Flags().BoolVar(&first, "first", false, "Keep only the first trimmed value per field (null when absent)")
	return cmd
}

func newTableCmd(g *globalFlags) *cobra.Command {
	var (
		specs  []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "table URL --field name=xpath...",
		Short: "Pair field values by position into rows",
		Long:  "Each field's matches form a column; row i takes the i-th value of every column. Columns of different lengths produce no rows.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := parseFieldSpecs(specs)
			if err != nil {
				return err
			}
			x, err := g.extractor(cmd)
			if err != nil {
				return err
			}
			rows, err := x.TableFromURL(cmd.Context(), args[0], fm)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			renderRows(cmd.OutOrStdout(), fm.Names(), rows)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&specs, "field", "f", nil, "Field as name=xpath (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON instead of a table")
	return cmd
}

func newProfilesCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List available site profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := site.Registry(path)
			if err != nil {
				return err
			}
			source := map[string]string{}
			for _, name := range site.BuiltinNames() {
				source[name] = "builtin"
			}
			if path != "" {
				fromFile, err := site.LoadProfiles(path)
				if err != nil {
					return err
				}
				for name := range fromFile {
					source[name] = "file"
				}
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Site", "Source", "Listings", "Require", "Delay", "Fields", "First listing"})
			for _, name := range site.Names(reg) {
				p := reg[name]
				urls := p.ListingURLs()
				first := ""
				if len(urls) > 0 {
					first = urls[0]
				}
				t.AppendRow(table.Row{name, source[name], len(urls), p.Require, p.Delay, strings.Join(p.FieldOrder(), ","), first})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "profiles", "", "YAML file with additional site profiles")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "paperxtract %s (commit %s, built %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		},
	}
}

// parseFieldSpecs turns name=xpath pairs into a validated field map.
func parseFieldSpecs(specs []string) (extract.FieldMap, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one --field name=xpath is required")
	}
	fm := extract.FieldMap{}
	for _, s := range specs {
		name, expr, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(expr) == "" {
			return nil, fmt.Errorf("bad field %q: want name=xpath", s)
		}
		if _, dup := fm[name]; dup {
			return nil, fmt.Errorf("duplicate field %q", name)
		}
		fm[name] = expr
	}
	return fm, fm.Validate()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderRows(w io.Writer, names []string, rows []reshape.Row) {
	sort.Strings(names)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	header := table.Row{"#"}
	for _, n := range names {
		header = append(header, n)
	}
	t.AppendHeader(header)
	for i, r := range rows {
		row := table.Row{i + 1}
		for _, n := range names {
			row = append(row, r[n])
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
