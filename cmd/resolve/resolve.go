// Package resolve handles merchant lookups against the mapping table
package resolve

import (
	"fmt"
	"io"
	"strings"

	"fjacquet/anapay2zaim/cmd/root"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/resolver"

	"github.com/spf13/cobra"
)

// Cmd represents the resolve command
var Cmd = &cobra.Command{
	Use:   "resolve <merchant>...",
	Short: "Resolve merchant names against the mapping table",
	Long: `Resolve merchant names the way sync does and print the display name, genre and
category that would be submitted. No mail or network access is needed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: resolveFunc,
}

func resolveFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}
	Print(cmd.OutOrStdout(), c.GetResolver(), args, c.GetLogger())
	return nil
}

// Print writes one line per merchant: raw name, display name, genre, category
// and the mapping key that matched.
func Print(out io.Writer, r *resolver.Resolver, merchants []string, logger logging.Logger) {
	for _, raw := range merchants {
		a := r.Apply(raw)
		key := a.MappingKey
		if !a.Matched() {
			key = "(default)"
		}
		logger.Debug("Merchant resolved",
			logging.F(logging.FieldMerchant, raw),
			logging.F(logging.FieldMappingKey, a.MappingKey))
		fmt.Fprintf(out, "%s\t%s\tgenre=%d\tcategory=%d\tkey=%s\n",
			strings.TrimSpace(raw), a.Name, a.GenreID, a.CategoryID, key)
	}
}
