package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vk/walletbridge/internal/app"
	"github.com/vk/walletbridge/internal/registry"
)

type moduleListing struct {
	Name    string                `json:"name"`
	Methods []registry.MethodInfo `json:"methods"`
}

func (r *root) newModulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List native modules and their methods",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := r.appConfig()
			bridge := app.NewApp(r.errW, cfg, loaderFor(cfg.ConfigPath))
			defer bridge.Close()

			listing, err := listModules(bridge.Registry())
			if err != nil {
				return err
			}
			if r.v.GetBool("json") {
				enc := json.NewEncoder(r.outW)
				enc.SetIndent("", "  ")
				return enc.Encode(listing)
			}

			tw := tabwriter.NewWriter(r.outW, 0, 4, 2, ' ', 0)
			for _, mod := range listing {
				fmt.Fprintln(tw, mod.Name)
				for _, m := range mod.Methods {
					fmt.Fprintf(tw, "  %s\t%s\t-> %s\n", m.Name, m.Input, m.Output)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "Print the listing as JSON.")
	return cmd
}

func listModules(reg *registry.Registry) ([]moduleListing, error) {
	var out []moduleListing
	for _, d := range reg.Descriptors() {
		methods, err := reg.Methods(d.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, moduleListing{Name: d.Name, Methods: methods})
	}
	return out, nil
}
