package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/infra/storage/memory"
)

func TestPruner_Prune(t *testing.T) {
	repo := memory.NewTransferRepo(memory.NewMemoryStorage())
	ctx := context.Background()

	_ = repo.Create(ctx, &domain.TransferRecord{TransactionID: "old", CreatedAt: time.Now().Add(-2 * time.Hour)})
	_ = repo.Create(ctx, &domain.TransferRecord{TransactionID: "new", CreatedAt: time.Now()})

	NewPruner(time.Hour, repo, nil).Prune(ctx)

	all, _ := repo.List(ctx, "", 0)
	if len(all) != 1 || all[0].TransactionID != "new" {
		t.Errorf("expected only the recent record, got %+v", all)
	}
}

func TestPruner_DisabledReturnsImmediately(t *testing.T) {
	repo := memory.NewTransferRepo(memory.NewMemoryStorage())
	done := make(chan struct{})
	go func() {
		NewPruner(0, repo, nil).Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled pruner should return immediately")
	}
}
