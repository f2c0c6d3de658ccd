package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hikarino/webscout/internal/robots"
)

var robotsCmd = &cobra.Command{
	Use:   "robots URL...",
	Short: "Resolve robots.txt policy for one or more URLs",
	Long: `Fetches and evaluates each URL's robots.txt, reporting whether the
configured agent may fetch it, the requested crawl delay, and the
sitemaps the policy declares.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRobots,
}

func init() {
	robotsCmd.Flags().String("agent", "", "Agent token to match against User-agent groups (default: the session user agent product)")
	robotsCmd.Flags().Bool("default-deny", false, "Deny instead of allow when robots.txt cannot be resolved")
	robotsCmd.Flags().Bool("sitemaps", false, "Also list the sitemaps declared in each robots.txt")
	rootCmd.AddCommand(robotsCmd)
}

func runRobots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	agent, _ := cmd.Flags().GetString("agent")
	if agent == "" {
		agent = "webscout"
	}
	defaultDeny, _ := cmd.Flags().GetBool("default-deny")
	listSitemaps, _ := cmd.Flags().GetBool("sitemaps")

	s := newSession(cfg)
	resolver := robots.NewResolver(robots.Config{
		Client:      newClient(cfg, s),
		UserAgent:   agent,
		CacheTTL:    cfg.Robots.CacheTTL,
		DefaultDeny: defaultDeny || cfg.Robots.DefaultDeny,
	})

	ctx := cmd.Context()
	for _, rawURL := range args {
		d := resolver.IsAllowed(ctx, rawURL)
		verdict := "allowed"
		if !d.Allowed {
			verdict = "denied"
		}
		fmt.Printf("%s: %s (source: %s", rawURL, verdict, d.Source)
		if d.MatchedRule != "" {
			fmt.Printf(", rule: %s", d.MatchedRule)
		}
		fmt.Print(")")
		if delay := resolver.CrawlDelay(ctx, rawURL); delay > 0 {
			fmt.Printf(" crawl-delay: %s", delay)
		}
		fmt.Println()

		if listSitemaps {
			for _, sm := range resolver.Sitemaps(ctx, rawURL) {
				fmt.Printf("  sitemap: %s\n", sm)
			}
		}
	}
	return nil
}
