package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/request"
)

var lookupOpts struct {
	domain      string
	site        string
	language    string
	tags        []string
	limit       int
	offset      int
	maxTagItems int
	where       string
	matchLength int
}

func addLookupFlags(cmd *cobra.Command, paginated bool) {
	f := cmd.Flags()
	f.StringVarP(&lookupOpts.domain, "domain", "d", "", "search domain (config default when empty)")
	f.StringVar(&lookupOpts.site, "site", "", "site id")
	f.StringVar(&lookupOpts.language, "lang", "", "language")
	f.StringSliceVarP(&lookupOpts.tags, "tags", "t", nil, "restrict to these tags")
	if paginated {
		f.IntVarP(&lookupOpts.limit, "limit", "n", 0, "maximum number of items")
		f.IntVar(&lookupOpts.offset, "offset", 0, "items to skip")
		f.IntVar(&lookupOpts.maxTagItems, "max-tag-items", 0, "top items per tag instead of a page")
		f.StringVar(&lookupOpts.where, "where", "", "extra SQL condition on the nodes table")
		f.IntVar(&lookupOpts.matchLength, "match-length", 0, "content match window in characters")
	}
}

func options() request.Options {
	return request.Options{
		Domain:             lookupOpts.domain,
		Site:               lookupOpts.site,
		Language:           lookupOpts.language,
		Tags:               lookupOpts.tags,
		MaxItems:           lookupOpts.limit,
		Offset:             lookupOpts.offset,
		MaxTagItems:        lookupOpts.maxTagItems,
		AdditionalWhere:    lookupOpts.where,
		ContentMatchLength: lookupOpts.matchLength,
	}
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the active index",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var countsCmd = &cobra.Command{
	Use:   "counts [query]",
	Short: "Count matches per tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runCounts,
}

var autocompleteCmd = &cobra.Command{
	Use:   "autocomplete [partial]",
	Short: "Suggest completions for partial input",
	Args:  cobra.ExactArgs(1),
	RunE:  runAutocomplete,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List the tags present in the active index",
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "List the URLs of a site for sitemap generation",
	Args:  cobra.NoArgs,
	RunE:  runSitemap,
}

func init() {
	addLookupFlags(searchCmd, true)
	addLookupFlags(countsCmd, true)
	addLookupFlags(autocompleteCmd, true)
	addLookupFlags(tagsCmd, false)
	addLookupFlags(sitemapCmd, false)
	rootCmd.AddCommand(searchCmd, countsCmd, autocompleteCmd, tagsCmd, sitemapCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.Searcher().Search(cmd.Context(), args[0], options())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, results)
	}
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i, r := range results {
		cmd.Printf("  [%d] %s (%s, %.2f)\n", i+1, r.Title, r.Tag, r.Score)
		if r.URL != "" {
			cmd.Printf("      %s\n", r.URL)
		}
		if r.ContentMatch != "" {
			cmd.Printf("      %s\n", r.ContentMatch)
		}
	}
	return nil
}

func runCounts(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	counts, err := a.Searcher().SearchCounts(cmd.Context(), args[0], options())
	if err != nil {
		return fmt.Errorf("counts failed: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, counts)
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Printf("%-16s %d\n", k, counts[k])
	}
	return nil
}

func runAutocomplete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	suggestions, err := a.Searcher().Autocomplete(cmd.Context(), args[0], options())
	if err != nil {
		return fmt.Errorf("autocomplete failed: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, suggestions)
	}
	for _, s := range suggestions {
		cmd.Println(s.Word)
	}
	return nil
}

func runTags(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	tags, err := a.Searcher().Tags(cmd.Context(), options())
	if err != nil {
		return fmt.Errorf("tags failed: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, tags)
	}
	ids := make([]string, 0, len(tags))
	for id := range tags {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		cmd.Printf("%-16s %s\n", id, tags[id].Label)
	}
	return nil
}

func runSitemap(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Searcher().Sitemap(cmd.Context(), options())
	if err != nil {
		return fmt.Errorf("sitemap failed: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, entries)
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s\t%s\t%.1f\n", e.URL, e.Timestamp.Format("2006-01-02"), e.Priority)
	}
	cmd.Print(b.String())
	return nil
}
