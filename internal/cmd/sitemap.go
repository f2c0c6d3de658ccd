package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hikarino/webscout/internal/fetch"
	"github.com/hikarino/webscout/internal/sitemap"
)

var sitemapCmd = &cobra.Command{
	Use:   "sitemap URL",
	Short: "Discover and list URLs from a sitemap",
	Long: `Fetches and parses a sitemap document, following sitemap indexes
recursively when requested. With --probe, the argument is treated as a
site base URL and the well-known sitemap locations are tried first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSitemap,
}

func init() {
	sitemapCmd.Flags().BoolP("recursive", "r", false, "Follow sitemap indexes recursively")
	sitemapCmd.Flags().Int("max-depth", 0, "Recursion depth limit (default from config)")
	sitemapCmd.Flags().Bool("probe", false, "Probe common sitemap locations under the given base URL")
	sitemapCmd.Flags().Bool("from-robots", false, "Treat the argument as a robots.txt URL and list its sitemaps")
	sitemapCmd.Flags().Bool("long", false, "Print lastmod, priority and source alongside each URL")
	rootCmd.AddCommand(sitemapCmd)
}

func runSitemap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	recursive, _ := cmd.Flags().GetBool("recursive")
	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	probe, _ := cmd.Flags().GetBool("probe")
	fromRobots, _ := cmd.Flags().GetBool("from-robots")
	long, _ := cmd.Flags().GetBool("long")

	if maxDepth <= 0 {
		maxDepth = cfg.Sitemap.MaxDepth
	}

	s := newSession(cfg)
	d := sitemap.NewDiscoverer(sitemap.Config{
		Client:      newClient(cfg, s),
		Limiter:     fetch.NewPoliteLimiter(cfg.RequestDelay),
		CacheTTL:    cfg.Sitemap.CacheTTL,
		MaxChildren: cfg.Sitemap.MaxChildren,
		MaxURLs:     cfg.Sitemap.MaxURLs,
	})
	ctx := cmd.Context()

	switch {
	case probe:
		found, err := d.ProbeCommonLocations(ctx, args[0])
		if err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Println("no sitemaps found")
			return nil
		}
		for _, u := range found {
			fmt.Println(u)
		}
		return nil
	case fromRobots:
		sitemaps, err := d.SitemapsFromRobots(ctx, args[0])
		if err != nil {
			return err
		}
		for _, u := range sitemaps {
			fmt.Println(u)
		}
		return nil
	}

	entries, err := d.Parse(ctx, args[0], sitemap.Options{
		Recursive: recursive,
		MaxDepth:  maxDepth,
	})
	if err != nil {
		return err
	}

	for _, e := range entries {
		if !long {
			fmt.Println(e.URL)
			continue
		}
		fmt.Printf("%s\tsource=%s", e.URL, e.Source)
		if e.LastMod != nil {
			fmt.Printf("\tlastmod=%s", e.LastMod.Format("2006-01-02"))
		}
		if e.Priority > 0 {
			fmt.Printf("\tpriority=%.1f", e.Priority)
		}
		fmt.Println()
	}

	stats := d.Stats()
	fmt.Fprintf(cmd.ErrOrStderr(), "parsed %d sitemaps, %d URLs, %d child errors\n",
		stats.Parsed, stats.Extracted, stats.ChildErrors)
	return nil
}
