package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage"
)

const chain = "1"

func block(number uint64, hash string, txCount int) *domain.Block {
	b := &domain.Block{Number: number, Hash: hash, ParentHash: "0xp"}
	for i := 0; i < txCount; i++ {
		b.Transactions = append(b.Transactions, &domain.Transaction{
			Hash: hash + "-tx" + string(rune('a'+i)),
		})
	}
	return b
}

func mustCommit(t *testing.T, uow storage.UnitOfWork) {
	t.Helper()
	if err := uow.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestInsertAndReadBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	uow, _ := s.Begin(ctx)
	if err := uow.InsertBlock(ctx, chain, block(5, "0xfive", 2)); err != nil {
		t.Fatal(err)
	}
	mustCommit(t, uow)

	ref, err := s.GetByHash(ctx, chain, "0xfive")
	if err != nil {
		t.Fatal(err)
	}
	if ref == nil || ref.Number != 5 || ref.TransactionCount != 2 {
		t.Fatalf("ref = %+v", ref)
	}

	latest, ok, err := s.LatestNumber(ctx, chain)
	if err != nil || !ok || latest != 5 {
		t.Fatalf("latest = %d ok=%v err=%v", latest, ok, err)
	}

	if _, ok, _ := s.LatestNumber(ctx, "other-chain"); ok {
		t.Error("foreign chain must not see rows")
	}
}

func TestDuplicateInsertsReportNoRowsAffected(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	uow, _ := s.Begin(ctx)
	if err := uow.InsertBlock(ctx, chain, block(1, "0xdup", 0)); err != nil {
		t.Fatal(err)
	}
	if err := uow.InsertBlock(ctx, chain, block(1, "0xdup", 0)); !errors.Is(err, storage.ErrNoRowsAffected) {
		t.Fatalf("duplicate block insert err = %v", err)
	}

	tx := &domain.Transaction{Hash: "0xt"}
	receipt := &domain.Receipt{TransactionHash: "0xt", Status: "0x1"}
	if err := uow.InsertTransaction(ctx, "0xdup", tx, receipt); err != nil {
		t.Fatal(err)
	}
	if err := uow.InsertTransaction(ctx, "0xdup", tx, receipt); !errors.Is(err, storage.ErrNoRowsAffected) {
		t.Fatalf("duplicate tx insert err = %v", err)
	}

	lg := &domain.Log{TransactionHash: "0xt", LogIndex: 0}
	if _, err := uow.InsertLog(ctx, lg); err != nil {
		t.Fatal(err)
	}
	if _, err := uow.InsertLog(ctx, lg); !errors.Is(err, storage.ErrNoRowsAffected) {
		t.Fatalf("duplicate log insert err = %v", err)
	}
	mustCommit(t, uow)
}

func TestRollbackRestoresPriorState(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	uow, _ := s.Begin(ctx)
	if err := uow.InsertBlock(ctx, chain, block(1, "0xkeep", 0)); err != nil {
		t.Fatal(err)
	}
	mustCommit(t, uow)

	uow, _ = s.Begin(ctx)
	if err := uow.InsertBlock(ctx, chain, block(2, "0xdiscard", 0)); err != nil {
		t.Fatal(err)
	}
	if err := uow.DeleteBlocksAtHeight(ctx, chain, 1); err != nil {
		t.Fatal(err)
	}
	if err := uow.Rollback(ctx); err != nil {
		t.Fatal(err)
	}

	if ref, _ := s.GetByHash(ctx, chain, "0xkeep"); ref == nil {
		t.Error("rollback lost committed row")
	}
	if ref, _ := s.GetByHash(ctx, chain, "0xdiscard"); ref != nil {
		t.Error("rollback kept uncommitted row")
	}
}

func TestTransactionCountSumsAcrossBlockRowsAtHeight(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	uow, _ := s.Begin(ctx)
	if err := uow.InsertBlock(ctx, chain, block(9, "0xaa", 1)); err != nil {
		t.Fatal(err)
	}
	receipt := &domain.Receipt{Status: "0x1"}
	if err := uow.InsertTransaction(ctx, "0xaa", &domain.Transaction{Hash: "0xt1"}, receipt); err != nil {
		t.Fatal(err)
	}
	if err := uow.InsertBlock(ctx, chain, block(9, "0xbb", 2)); err != nil {
		t.Fatal(err)
	}
	if err := uow.InsertTransaction(ctx, "0xbb", &domain.Transaction{Hash: "0xt2"}, receipt); err != nil {
		t.Fatal(err)
	}
	if err := uow.InsertTransaction(ctx, "0xbb", &domain.Transaction{Hash: "0xt3"}, receipt); err != nil {
		t.Fatal(err)
	}
	mustCommit(t, uow)

	count, err := s.TransactionCountAtHeight(ctx, chain, 9)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestDeleteCascadesFollowHeight(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	uow, _ := s.Begin(ctx)
	if err := uow.InsertBlock(ctx, chain, block(4, "0xblk", 1)); err != nil {
		t.Fatal(err)
	}
	receipt := &domain.Receipt{Status: "0x1"}
	if err := uow.InsertTransaction(ctx, "0xblk", &domain.Transaction{Hash: "0xtx"}, receipt); err != nil {
		t.Fatal(err)
	}
	if _, err := uow.InsertLog(ctx, &domain.Log{TransactionHash: "0xtx", LogIndex: 0}); err != nil {
		t.Fatal(err)
	}
	if err := uow.InsertOmmer(ctx, chain, "0xuncle", "0xblk"); err != nil {
		t.Fatal(err)
	}
	mustCommit(t, uow)

	uow, _ = s.Begin(ctx)
	if err := uow.DeleteLogsAtHeight(ctx, chain, 4); err != nil {
		t.Fatal(err)
	}
	if err := uow.DeleteTransactionsAtHeight(ctx, chain, 4); err != nil {
		t.Fatal(err)
	}
	if err := uow.DeleteOmmersAtHeight(ctx, chain, 4); err != nil {
		t.Fatal(err)
	}
	if err := uow.DeleteBlocksAtHeight(ctx, chain, 4); err != nil {
		t.Fatal(err)
	}
	mustCommit(t, uow)

	if got := len(s.Blocks(chain)); got != 0 {
		t.Errorf("blocks remain: %d", got)
	}
	if got := len(s.TransactionHashes("0xblk")); got != 0 {
		t.Errorf("transactions remain: %d", got)
	}
	if got := len(s.LogsByTransaction("0xtx")); got != 0 {
		t.Errorf("logs remain: %d", got)
	}
	if got := len(s.Ommers(chain)); got != 0 {
		t.Errorf("ommers remain: %d", got)
	}
}
