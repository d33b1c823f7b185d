package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/pubsub"
)

type Config struct {
	Path string `yaml:"path"`
}

// Log is the sqlite-backed redemption history. One row per finished
// redemption, appended from the outcome bus.
type Log struct {
	logger *slog.Logger

	db *sql.DB
}

type Entry struct {
	ID           int64              `json:"id"`
	RedemptionID string             `json:"redemption_id"`
	RedeemName   string             `json:"redeem_name"`
	UserName     string             `json:"user_name"`
	UserInput    string             `json:"user_input,omitempty"`
	ActionKind   redeems.ActionKind `json:"action_kind"`
	Success      bool               `json:"success"`
	Message      string             `json:"message,omitempty"`
	Verdict      string             `json:"verdict,omitempty"`
	QueueNumber  int64              `json:"queue_number,omitempty"`
	FinishedAt   time.Time          `json:"finished_at"`
}

const schema = `
	create table if not exists redemption_history (
		id            integer primary key autoincrement,
		redemption_id text    not null,
		redeem_name   text    not null,
		user_name     text    not null,
		user_input    text    not null default '',
		action_kind   text    not null,
		success       integer not null,
		message       text    not null default '',
		verdict       text    not null default '',
		queue_number  integer not null default 0,
		finished_at   timestamp not null
	);

	create index if not exists idx_history_finished_at
		on redemption_history(finished_at);
`

func New(logger *slog.Logger, cfg *Config) (*Log, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Log{
		logger: logger,

		db: db,
	}, nil
}

func (l *Log) Record(o redeems.Outcome) error {
	_, err := l.db.Exec(`
		insert into redemption_history(
			redemption_id,
			redeem_name,
			user_name,
			user_input,
			action_kind,
			success,
			message,
			verdict,
			queue_number,
			finished_at
		)
		values($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		o.Redemption.ID,
		o.RedeemName,
		o.Redemption.UserName,
		o.Redemption.UserInput,
		string(o.ActionKind),
		o.Result.Success,
		o.Result.Message,
		string(o.Verdict),
		o.Result.QueueNumber,
		o.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

// Recent returns the newest entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		select
			id,
			redemption_id,
			redeem_name,
			user_name,
			user_input,
			action_kind,
			success,
			message,
			verdict,
			queue_number,
			finished_at
		from redemption_history
		order by id desc
		limit $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)

	for rows.Next() {
		var e Entry
		var kind string

		if err := rows.Scan(
			&e.ID,
			&e.RedemptionID,
			&e.RedeemName,
			&e.UserName,
			&e.UserInput,
			&kind,
			&e.Success,
			&e.Message,
			&e.Verdict,
			&e.QueueNumber,
			&e.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		e.ActionKind = redeems.ActionKind(kind)
		entries = append(entries, e)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return entries, nil
}

// Subscribe starts recording outcomes published on the bus.
func (l *Log) Subscribe(events *pubsub.PubSub) (unsub func()) {
	return events.Subscribe(redeems.TopicOutcomes, func(message any) {
		o, ok := message.(redeems.Outcome)
		if !ok {
			return
		}

		if err := l.Record(o); err != nil {
			l.logger.Error("failed to record redemption outcome", "err", err)
		}
	})
}

func (l *Log) Close() error {
	return l.db.Close()
}
