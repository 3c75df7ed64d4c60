package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syssam/modelconnect/contrib/httpapi"
)

func (a *app) newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the HTTP routes of every model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, reg, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATH\tMODEL\tTAGS")
			for _, m := range f.Models {
				prefix, err := httpapi.Prefix(reg, m.Type())
				if err != nil {
					return err
				}
				tags, err := httpapi.Tags(reg, m.Type())
				if err != nil {
					return err
				}
				for _, method := range []string{"GET", "POST"} {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", method, prefix, m.Name, strings.Join(tags, ","))
				}
			}
			return w.Flush()
		},
	}
}
