package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"allocator/entities"
	"allocator/message/event"
	"allocator/message/outbox"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type allocatedOrderRow struct {
	ReportID    string    `db:"report_id"`
	Position    int       `db:"position"`
	OrderID     string    `db:"order_id"`
	ProcessedAt time.Time `db:"processed_at"`
	Lines       []byte    `db:"lines"`
}

// ReportRepository exports the final allocation report.
type ReportRepository struct {
	db *DB
}

func NewReportRepository(db *DB) ReportRepository {
	if db == nil {
		panic("db is nil")
	}
	return ReportRepository{
		db: db,
	}
}

// SaveReport stores every order status in ledger order and publishes
// ReportExported_v1 through the outbox in the same transaction.
func (r ReportRepository) SaveReport(ctx context.Context, statuses []entities.OrderStatus) (string, error) {
	reportID := uuid.NewString()

	err := updateInTx(
		ctx,
		r.db.Conn,
		sql.LevelSerializable,
		func(ctx context.Context, tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO
				    allocation_reports (report_id, exported_at, orders)
				VALUES
					($1, $2, $3)
			`, reportID, time.Now().UTC(), len(statuses))
			if err != nil {
				return fmt.Errorf("could not add report: %w", err)
			}

			for i, status := range statuses {
				lines, err := json.Marshal(status.Lines)
				if err != nil {
					return err
				}

				_, err = tx.NamedExecContext(ctx, `
					INSERT INTO
					    allocated_orders (report_id, position, order_id, processed_at, lines)
					VALUES
						(:report_id, :position, :order_id, :processed_at, :lines)
					ON CONFLICT (report_id, order_id) DO NOTHING
				`, allocatedOrderRow{
					ReportID:    reportID,
					Position:    i,
					OrderID:     status.OrderID,
					ProcessedAt: status.ProcessedAt,
					Lines:       lines,
				})
				if err != nil {
					return fmt.Errorf("could not add order %s: %w", status.OrderID, err)
				}
			}

			outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
			if err != nil {
				return fmt.Errorf("error creating event outbox publisher: %w", err)
			}
			bus, err := event.NewBus(outboxPublisher)
			if err != nil {
				return err
			}

			err = bus.Publish(ctx, entities.ReportExported_v1{
				Header:   entities.NewEventHeader(),
				ReportID: reportID,
				Orders:   len(statuses),
			})
			if err != nil {
				return fmt.Errorf("could not publish ReportExported: %w", err)
			}

			return nil
		},
	)
	if err != nil {
		return "", err
	}

	log.FromContext(ctx).WithField("report_id", reportID).Info("Report exported")

	return reportID, nil
}

// Report reads back an exported report in ledger order.
func (r ReportRepository) Report(ctx context.Context, reportID string) ([]entities.OrderStatus, error) {
	var rows []allocatedOrderRow
	err := r.db.Conn.SelectContext(ctx, &rows, `
		SELECT
		    report_id, position, order_id, processed_at, lines
		FROM
		    allocated_orders
		WHERE
		    report_id = $1
		ORDER BY position
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("could not get report %s: %w", reportID, err)
	}

	statuses := make([]entities.OrderStatus, 0, len(rows))
	for _, row := range rows {
		status := entities.OrderStatus{
			OrderID:     row.OrderID,
			ProcessedAt: row.ProcessedAt,
		}
		if err := json.Unmarshal(row.Lines, &status.Lines); err != nil {
			return nil, fmt.Errorf("invalid lines of order %s: %w", row.OrderID, err)
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}
