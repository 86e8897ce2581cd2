package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
)

const (
	kindNotice = "notice"
	kindEvent  = "event"
)

// JournalEntry is the persisted summary of one step.
type JournalEntry struct {
	construct.StepSummary
	RecordedAt time.Time
}

// JournalRepository records step summaries and the notices and events each
// step delivered.
type JournalRepository struct {
	db *pgxpool.Pool
}

// NewJournalRepository creates a JournalRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewJournalRepository(db *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{db: db}
}

// Record stores rep and its deliveries in one transaction.
//
// Precondition: rep.RunID must be unique.
// Postcondition: Deliveries are stored in the given order.
func (r *JournalRepository) Record(ctx context.Context, contract chain.AccountID, rep construct.Report, deliveries []chain.Delivery) error {
	sum := rep.Summary()
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO step_journal (
				run_id, contract_id, height, actions, attacks, commands, refunds,
				damage, hitpoints, regenerated, deactivated, settled, final_blow)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			sum.RunID, int64(contract), sum.Height, sum.Actions, sum.Attacks, sum.Commands, sum.Refunds,
			sum.Damage, sum.Hitpoints, sum.Regenerated, sum.Deactivated, sum.Settled, int64(sum.FinalBlow),
		)
		if err != nil {
			return fmt.Errorf("insert step: %w", err)
		}

		batch := &pgx.Batch{}
		for seq, d := range deliveries {
			switch {
			case d.Notice != nil:
				batch.Queue(`
					INSERT INTO journal_deliveries (id, run_id, seq, recipient, kind, text, amount)
					VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					uuid.New(), rep.RunID, seq, int64(d.To), kindNotice, d.Notice.Text, d.Notice.Amount,
				)
			case d.Event != nil:
				batch.Queue(`
					INSERT INTO journal_deliveries (id, run_id, seq, recipient, kind, words)
					VALUES ($1, $2, $3, $4, $5, $6)`,
					uuid.New(), rep.RunID, seq, int64(d.To), kindEvent, d.Event[:],
				)
			}
		}
		return execBatch(ctx, tx, batch)
	})
	if err != nil {
		return fmt.Errorf("recording step %s: %w", rep.RunID, err)
	}
	return nil
}

// Recent returns up to limit journal entries of contract, newest first.
func (r *JournalRepository) Recent(ctx context.Context, contract chain.AccountID, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT run_id, height, actions, attacks, commands, refunds, damage, hitpoints,
		       regenerated, deactivated, settled, final_blow, recorded_at
		FROM step_journal
		WHERE contract_id = $1
		ORDER BY height DESC, recorded_at DESC
		LIMIT $2`,
		int64(contract), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			e         JournalEntry
			finalBlow int64
		)
		if err := rows.Scan(&e.RunID, &e.Height, &e.Actions, &e.Attacks, &e.Commands, &e.Refunds,
			&e.Damage, &e.Hitpoints, &e.Regenerated, &e.Deactivated, &e.Settled, &finalBlow, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.FinalBlow = chain.AccountID(finalBlow)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return entries, nil
}

// Deliveries returns the notices and events recorded for one step, in order.
func (r *JournalRepository) Deliveries(ctx context.Context, runID uuid.UUID) ([]chain.Delivery, error) {
	rows, err := r.db.Query(ctx, `
		SELECT recipient, kind, text, amount, words
		FROM journal_deliveries
		WHERE run_id = $1
		ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var out []chain.Delivery
	for rows.Next() {
		var (
			recipient int64
			kind      string
			text      string
			amount    int64
			words     []int64
		)
		if err := rows.Scan(&recipient, &kind, &text, &amount, &words); err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}
		d := chain.Delivery{To: chain.AccountID(recipient)}
		switch kind {
		case kindNotice:
			d.Notice = &chain.Notice{Text: text, Amount: amount}
		case kindEvent:
			var e chain.Event
			copy(e[:], words)
			d.Event = &e
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deliveries: %w", err)
	}
	return out, nil
}
