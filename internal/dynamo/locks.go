package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"lockwatch/internal/metrics"
)

// ErrScan wraps failures of the underlying table scan (network, throttling,
// auth). The scan is not retried here.
var ErrScan = errors.New("locks table scan failed")

// Lock is one item of the locks table as this job consumes it. The table is
// owned by the fleet service; lockwatch only reads.
type Lock struct {
	LockID             string `dynamodbav:"lock_id"`
	LastBatteryChecked string `dynamodbav:"last_battery_checked"`
}

// LastChecked parses the item's battery-check timestamp. A missing or
// unparsable value counts as never checked and maps to the zero time, which
// sorts before any cutoff.
func (l Lock) LastChecked() time.Time {
	if l.LastBatteryChecked == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, l.LastBatteryChecked)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ScanAPI is the slice of the DynamoDB client the lock store needs.
type ScanAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// LockStore provides typed read access to the locks table.
type LockStore struct {
	client ScanAPI
	table  string
	logger *zap.Logger
}

func NewLockStore(client ScanAPI, table string, logger *zap.Logger) *LockStore {
	return &LockStore{client: client, table: table, logger: logger}
}

// FetchStale scans the whole locks table and returns every lock whose last
// battery check is strictly before cutoff. A check exactly at the cutoff is
// fresh enough. The scan pages through ExclusiveStartKey so memory stays
// bounded by page size, not table size; filtering happens per page,
// client-side, because last_battery_checked is not indexed.
func (s *LockStore) FetchStale(ctx context.Context, cutoff time.Time) ([]Lock, error) {
	var stale []Lock
	var startKey map[string]types.AttributeValue

	pages := 0
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScan, err)
		}
		pages++

		var page []Lock
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("%w: unmarshal items: %w", ErrScan, err)
		}
		metrics.LocksScanned.Add(float64(len(page)))

		for _, lock := range page {
			if lock.LastChecked().Before(cutoff) {
				stale = append(stale, lock)
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	s.logger.Debug("locks table scanned",
		zap.String("table", s.table),
		zap.Int("pages", pages),
		zap.Int("stale", len(stale)),
	)

	return stale, nil
}
