package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/search"
)

// routeOutput is the JSON form of a routing decision.
type routeOutput struct {
	Query   string `json:"query"`
	Domain  string `json:"domain"`
	Default bool   `json:"default"`
}

func newRouteCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "route <query>",
		Short: "Show which domain a query is routed to",
		Long: `Print the domain an automatic search would use for a query.

Routing only looks at each corpus' route keywords, so no corpus is loaded.`,
		Example: `  docsmcp route "how do I add a workflow step"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			routes := make([]search.Route, 0, len(cfg.Corpora))
			for _, cc := range cfg.Corpora {
				routes = append(routes, search.Route{Domain: cc.Name, Keywords: cc.RouteKeywords})
			}
			router := search.NewRouter(cfg.Router.DefaultDomain, routes...)

			query := strings.Join(args, " ")
			res := routeOutput{Query: query, Domain: router.Select(query)}
			res.Default = res.Domain == router.DefaultDomain()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Domain)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
