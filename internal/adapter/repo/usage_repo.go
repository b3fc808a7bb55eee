package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"server/internal/infra"
	"server/internal/metering"
	"server/internal/sqlinline"
)

// UsageRepositoryPG appends usage events for reconciliation and analytics.
type UsageRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewUsageRepository(sql infra.SQLExecutor) *UsageRepositoryPG {
	return &UsageRepositoryPG{sql: sql}
}

func (r *UsageRepositoryPG) Record(ctx context.Context, event metering.UsageEvent) error {
	var props []byte
	if len(event.Properties) > 0 {
		encoded, err := json.Marshal(event.Properties)
		if err != nil {
			return fmt.Errorf("encode usage properties: %w", err)
		}
		props = encoded
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertUsageEvent,
		event.ID, event.AccountID, event.EventType, event.Success, event.Credits, props)
	if err != nil {
		return fmt.Errorf("insert usage event: %w", err)
	}
	return nil
}

var _ metering.UsageRecorder = (*UsageRepositoryPG)(nil)
