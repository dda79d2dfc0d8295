package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/flowpanel/internal/control"
	"github.com/vietddude/flowpanel/internal/core/address"
	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/core/transfer"
	"github.com/vietddude/flowpanel/internal/core/txtracker"
)

var (
	transferFrom  string
	transferVault string
	transferFile  string
	transferWatch bool
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Send a batch transfer from a CSV file of receiver,amount lines",
	Run:   runTransfer,
}

func init() {
	transferCmd.Flags().StringVar(&transferFrom, "from", "", "sender address")
	transferCmd.Flags().StringVar(&transferVault, "vault", "", "vault type identifier, e.g. A.1654653399040a61.FlowToken.Vault")
	transferCmd.Flags().StringVar(&transferFile, "file", "", "CSV file with receiver,amount lines")
	transferCmd.Flags().BoolVar(&transferWatch, "watch", true, "wait for the transaction to seal")
	_ = transferCmd.MarkFlagRequired("from")
	_ = transferCmd.MarkFlagRequired("vault")
	_ = transferCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(transferCmd)
}

func runTransfer(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	data, err := os.ReadFile(transferFile)
	if err != nil {
		slog.Error("Failed to read transfer file", "error", err)
		os.Exit(1)
	}
	draft := transfer.NewDraft()
	if n := draft.Import(string(data)); n == 0 {
		slog.Error("No transfers found in file", "file", transferFile)
		os.Exit(1)
	}

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize flowpanel", "error", err)
		os.Exit(1)
	}
	defer app.Stop()

	balance, net, err := app.Accounts().Balance(ctx, transferFrom, transferVault)
	if err != nil {
		slog.Error("Failed to load sender balance", "error", err)
		os.Exit(1)
	}

	v := transfer.Validator{}
	if cfg.Transfer.StrictReceiver {
		v.Network = net
	}
	batch, rowErrs := v.Validate(draft.Rows(), balance.VaultBalance)
	if len(rowErrs) > 0 {
		for _, e := range rowErrs {
			if e.Row < 0 {
				fmt.Fprintf(os.Stderr, "batch: %s\n", e.Message)
				continue
			}
			fmt.Fprintf(os.Stderr, "line %d %s: %s\n", e.Row+1, e.Field, e.Message)
		}
		os.Exit(1)
	}

	sender, _ := address.Parse(transferFrom)
	id, err := app.Tracker().Submit(ctx, sender.String(), net, domain.TokenFromBalance(balance), batch)
	if err != nil {
		slog.Error("Transfer failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("submitted %s (%d recipients, total %s %s)\n", id, batch.Len(), batch.Total(), balance.Name())

	if !transferWatch {
		return
	}
	rec := waitForSeal(ctx, app)
	if rec.State == txtracker.StateSealedError {
		fmt.Printf("sealed with error: %s\n", rec.ErrorMessage)
		os.Exit(1)
	}
	if rec.State == txtracker.StateSealedSuccess {
		fmt.Println("sealed")
	}
}

// waitForSeal polls the tracker until the tracked transaction leaves Pending.
func waitForSeal(ctx context.Context, app *control.App) domain.TransactionRecord {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		rec := app.Tracker().Current()
		if rec.State != txtracker.StatePending {
			return rec
		}
		select {
		case <-ctx.Done():
			return rec
		case <-ticker.C:
		}
	}
}
