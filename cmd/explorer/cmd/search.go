package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicdata/explorer/internal/query"
)

var searchFilters struct {
	tags        []string
	categories  []string
	columns     []string
	departments []string
	sortBy      string
	asc         bool
	limit       int
}

var sortFields = map[string]query.SortField{
	"name":      query.SortName,
	"created":   query.SortCreated,
	"updated":   query.SortUpdated,
	"downloads": query.SortDownloads,
	"views":     query.SortViews,
}

var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search and filter the local replica",
	Long: `Search runs against the local replica only. With a term, results come
back in relevance order; without one they sort by the --sort field
(descending by default). Filters AND across dimensions and OR within one.

Examples:
  explorer search subway
  explorer search --tag transit --tag daily --category Transportation
  explorer search --sort downloads`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := ""
		if len(args) == 1 {
			term = args[0]
		}

		field, ok := sortFields[searchFilters.sortBy]
		if !ok {
			return fmt.Errorf("unknown sort field %q", searchFilters.sortBy)
		}

		if err := session.EnsurePortal(cmd.Context(), portal); err != nil {
			return err
		}

		datasets, err := engine.FilterDatasets(portal, query.Filters{
			Term:        term,
			Tags:        searchFilters.tags,
			Categories:  searchFilters.categories,
			Columns:     searchFilters.columns,
			Departments: searchFilters.departments,
		})
		if err != nil {
			return err
		}

		ranked := engine.TextSearch(datasets, term)
		searchActive := term != ""
		if !searchActive {
			query.SortBy(datasets, field, searchFilters.asc, false)
			ranked = engine.TextSearch(datasets, "")
		}

		if len(ranked) == 0 {
			fmt.Println("No datasets found")
			return nil
		}
		if searchFilters.limit > 0 && len(ranked) > searchFilters.limit {
			ranked = ranked[:searchFilters.limit]
		}

		for _, r := range ranked {
			d := r.Dataset
			line := fmt.Sprintf("%s  %s", d.ID, d.Name)
			if d.Department != "" {
				line += "  [" + d.Department + "]"
			}
			if d.UpdatedAt > 0 {
				line += "  updated " + time.UnixMilli(d.UpdatedAt).Format("2006-01-02")
			}
			fmt.Println(line)
			if searchActive && len(d.Tags) > 0 {
				fmt.Printf("    tags: %s\n", strings.Join(d.Tags, ", "))
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringArrayVar(&searchFilters.tags, "tag", nil, "filter by tag (repeatable)")
	searchCmd.Flags().StringArrayVar(&searchFilters.categories, "category", nil, "filter by category (repeatable)")
	searchCmd.Flags().StringArrayVar(&searchFilters.columns, "column", nil, "filter by column name (repeatable)")
	searchCmd.Flags().StringArrayVar(&searchFilters.departments, "department", nil, "filter by department (repeatable)")
	searchCmd.Flags().StringVar(&searchFilters.sortBy, "sort", "updated", "sort field: name, created, updated, downloads, views")
	searchCmd.Flags().BoolVar(&searchFilters.asc, "asc", false, "sort ascending instead of descending")
	searchCmd.Flags().IntVar(&searchFilters.limit, "limit", 25, "max results to print (0 = all)")
	rootCmd.AddCommand(searchCmd)
}
