package cmd

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hikarino/webscout/internal/pattern"
)

var matchCmd = &cobra.Command{
	Use:   "match URL...",
	Short: "Classify URLs against the configured patterns",
	Long: `Matches each URL path against the patterns section of the
configuration and prints the winning pattern, its activities and the
extracted parameters.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Patterns) == 0 {
		return fmt.Errorf("no patterns configured; add a patterns section to the config file")
	}

	m := pattern.NewMatcher()
	for _, p := range cfg.Patterns {
		if p.Default {
			m.RegisterDefault(pattern.Spec{
				Name:       p.Name,
				Activities: p.Activities,
				Metadata:   p.Metadata,
			})
			continue
		}
		if err := m.Register(pattern.Spec{
			Name:       p.Name,
			Template:   p.Template,
			Activities: p.Activities,
			Priority:   p.Priority,
			Metadata:   p.Metadata,
		}); err != nil {
			return fmt.Errorf("register pattern %s: %w", p.Name, err)
		}
	}

	for _, rawURL := range args {
		target := rawURL
		if u, err := url.Parse(rawURL); err == nil && u.IsAbs() {
			target = u.RequestURI()
		}
		res := m.Match(target)
		if res == nil {
			fmt.Printf("%s: no match\n", rawURL)
			continue
		}

		label := res.Name
		if res.Default {
			label += " (default)"
		}
		fmt.Printf("%s: %s", rawURL, label)
		if len(res.Activities) > 0 {
			fmt.Printf(" activities=%s", strings.Join(res.Activities, ","))
		}
		if len(res.Params) > 0 {
			keys := make([]string, 0, len(res.Params))
			for k := range res.Params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			var pairs []string
			for _, k := range keys {
				pairs = append(pairs, k+"="+res.Params[k])
			}
			fmt.Printf(" params={%s}", strings.Join(pairs, " "))
		}
		fmt.Println()
	}
	return nil
}
