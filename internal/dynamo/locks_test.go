package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// fakeScanner serves canned scan pages in order.
type fakeScanner struct {
	pages []*dynamodb.ScanOutput
	err   error
	calls int
}

func (f *fakeScanner) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.pages[f.calls]
	f.calls++
	return out, nil
}

func lockItem(lockID, lastChecked string) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"lock_id": &types.AttributeValueMemberS{Value: lockID},
	}
	if lastChecked != "" {
		item["last_battery_checked"] = &types.AttributeValueMemberS{Value: lastChecked}
	}
	return item
}

func TestFetchStale_FiltersOnCutoff(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	fake := &fakeScanner{pages: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{
			lockItem("L1", "2023-11-01T00:00:00Z"), // stale
			lockItem("L2", "2024-02-01T00:00:00Z"), // fresh
		},
	}}}

	store := NewLockStore(fake, "locks", zap.NewNop())
	stale, err := store.FetchStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stale) != 1 {
		t.Fatalf("expected 1 stale lock, got %d", len(stale))
	}
	if stale[0].LockID != "L1" {
		t.Errorf("expected L1, got %s", stale[0].LockID)
	}
}

func TestFetchStale_CutoffBoundaryIsExcluded(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	fake := &fakeScanner{pages: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{
			lockItem("L1", "2024-01-01T00:00:00Z"), // exactly at cutoff
		},
	}}}

	store := NewLockStore(fake, "locks", zap.NewNop())
	stale, err := store.FetchStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stale) != 0 {
		t.Fatalf("a check exactly at the cutoff must not count as stale, got %d locks", len(stale))
	}
}

func TestFetchStale_NeverCheckedIsStale(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	fake := &fakeScanner{pages: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{
			lockItem("L1", ""),            // attribute absent
			lockItem("L2", "not-a-date"),  // unparsable
			lockItem("L3", "2025-01-01T00:00:00Z"),
		},
	}}}

	store := NewLockStore(fake, "locks", zap.NewNop())
	stale, err := store.FetchStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stale) != 2 {
		t.Fatalf("expected 2 stale locks, got %d", len(stale))
	}
	if stale[0].LockID != "L1" || stale[1].LockID != "L2" {
		t.Errorf("expected L1 and L2, got %s and %s", stale[0].LockID, stale[1].LockID)
	}
}

func TestFetchStale_EmptyTable(t *testing.T) {
	fake := &fakeScanner{pages: []*dynamodb.ScanOutput{{}}}

	store := NewLockStore(fake, "locks", zap.NewNop())
	stale, err := store.FetchStale(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("no matches must not be an error, got: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected empty result, got %d locks", len(stale))
	}
}

func TestFetchStale_PaginatesToTheEnd(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	fake := &fakeScanner{pages: []*dynamodb.ScanOutput{
		{
			Items:            []map[string]types.AttributeValue{lockItem("L1", "2023-01-01T00:00:00Z")},
			LastEvaluatedKey: lockItem("L1", ""),
		},
		{
			Items: []map[string]types.AttributeValue{lockItem("L2", "2023-06-01T00:00:00Z")},
		},
	}}

	store := NewLockStore(fake, "locks", zap.NewNop())
	stale, err := store.FetchStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fake.calls != 2 {
		t.Errorf("expected 2 scan pages, got %d", fake.calls)
	}
	if len(stale) != 2 {
		t.Fatalf("expected stale locks from both pages, got %d", len(stale))
	}
}

func TestFetchStale_ScanError(t *testing.T) {
	fake := &fakeScanner{err: errors.New("throttled")}

	store := NewLockStore(fake, "locks", zap.NewNop())
	if _, err := store.FetchStale(context.Background(), time.Now()); !errors.Is(err, ErrScan) {
		t.Fatalf("expected ErrScan, got: %v", err)
	}
}
