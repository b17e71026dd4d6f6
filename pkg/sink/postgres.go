package sink

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Sternrassler/catalogue-crawler/pkg/catalogue"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// RecordsTable is the table the Postgres sink writes to.
const RecordsTable = "catalogue_records"

// DefaultInsertBatch is the number of rows per INSERT statement.
const DefaultInsertBatch = 500

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS catalogue_records (
	crawl_id     UUID             NOT NULL,
	ordinal      INTEGER          NOT NULL,
	title        TEXT             NOT NULL,
	year         INTEGER,
	score        DOUBLE PRECISION,
	scored_by    INTEGER,
	members      INTEGER,
	rank         INTEGER,
	genres       TEXT             NOT NULL DEFAULT '',
	demographics TEXT             NOT NULL DEFAULT '',
	collected_at TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (crawl_id, ordinal)
)`

var recordColumns = []string{
	"crawl_id", "ordinal",
	"title", "year", "score", "scored_by", "members", "rank", "genres", "demographics",
}

// psql renders squirrel builders with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// txBeginner is the subset of *pgxpool.Pool the sink needs.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink stores one crawl's records in catalogue_records, tagged with
// the crawl ID and each record's position in the dataset.
type PostgresSink struct {
	db      txBeginner
	crawlID uuid.UUID
	batch   int
	logger  zerolog.Logger
}

// NewPostgresSink creates a sink writing through pool.
func NewPostgresSink(pool *pgxpool.Pool, crawlID uuid.UUID, logger zerolog.Logger) *PostgresSink {
	return &PostgresSink{
		db:      pool,
		crawlID: crawlID,
		batch:   DefaultInsertBatch,
		logger:  logger,
	}
}

// Name implements Sink.
func (s *PostgresSink) Name() string {
	return "postgres"
}

// CrawlID returns the ID rows are tagged with.
func (s *PostgresSink) CrawlID() uuid.UUID {
	return s.crawlID
}

// EnsureSchema creates the records table if it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createRecordsTable); err != nil {
		return fmt.Errorf("create %s: %w", RecordsTable, err)
	}
	return nil
}

// Write implements Sink. All rows are inserted in one transaction.
func (s *PostgresSink) Write(ctx context.Context, records []catalogue.Record) (err error) {
	start := time.Now()
	defer func() {
		writeDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			writeErrorsTotal.WithLabelValues(s.Name()).Inc()
		}
	}()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for offset := 0; offset < len(records); offset += s.batch {
		end := min(offset+s.batch, len(records))

		query, args, err := buildInsert(s.crawlID, offset, records[offset:end])
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", offset, end-1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	rowsWrittenTotal.WithLabelValues(s.Name()).Add(float64(len(records)))

	s.logger.Info().
		Str("crawl_id", s.crawlID.String()).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Records stored")

	return nil
}

// buildInsert renders one multi-row INSERT for records, numbering them from
// offset.
func buildInsert(crawlID uuid.UUID, offset int, records []catalogue.Record) (string, []any, error) {
	insert := psql.Insert(RecordsTable).Columns(recordColumns...)
	id := crawlID.String()

	for i, r := range records {
		insert = insert.Values(
			id, offset+i,
			r.Title, r.Year, r.Score, r.ScoredBy, r.Members, r.Rank, r.Genres, r.Demographics,
		)
	}

	return insert.ToSql()
}
