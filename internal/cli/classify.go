package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/flowpanel/internal/core/address"
	"github.com/vietddude/flowpanel/internal/core/domain"
)

var classifyCmd = &cobra.Command{
	Use:   "classify ADDRESS...",
	Short: "Show which Flow network each address belongs to",
	Args:  cobra.MinimumNArgs(1),
	Run:   runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ADDRESS\tNETWORK")

	for _, arg := range args {
		a, err := address.Parse(arg)
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s\t%s (invalid)\n", arg, domain.NetworkUnknown)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", a, address.ClassifyAddress(a))
	}
	_ = w.Flush()
}
