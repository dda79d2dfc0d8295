package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/flowpanel/internal/core/address"
	"github.com/vietddude/flowpanel/internal/infra/storage/postgres"
)

var (
	historySender string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently submitted batch transfers",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySender, "sender", "", "only show batches sent by this address")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of batches")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		slog.Error("History requires database.url to be configured")
		os.Exit(1)
	}

	sender := historySender
	if sender != "" {
		a, err := address.Parse(sender)
		if err != nil {
			slog.Error("Invalid sender", "error", err)
			os.Exit(1)
		}
		sender = a.String()
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	records, err := postgres.NewTransferRepo(db).List(ctx, sender, historyLimit)
	if err != nil {
		slog.Error("Failed to list transfers", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CREATED\tNETWORK\tSENDER\tRECIPIENTS\tSTATE\tTX")
	for _, r := range records {
		state := string(r.State)
		if r.ErrorMessage != "" {
			state += ": " + r.ErrorMessage
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format(time.RFC3339), r.Network, r.Sender,
			strings.Join(r.Receivers, ","), state, r.TransactionID)
	}
	_ = w.Flush()
}
