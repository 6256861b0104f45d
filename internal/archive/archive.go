// Package archive copies the server's admin log streams into Postgres.
//
// Log records carry no id of their own, so each row is keyed by a BLAKE2b
// fingerprint of its stream name and canonical JSON. Re-running an archive
// pass only inserts rows it has not seen.
package archive

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/arena-client/internal/logging"
	"github.com/DoyleJ11/arena-client/internal/types"
)

const (
	StreamActions = "actions"
	StreamBattles = "battles"
	StreamSold    = "sold"
	StreamBids    = "bids"
)

// Source is the admin side of the api client.
type Source interface {
	ActionLogs(ctx context.Context) ([]types.Record, error)
	BattleLogs(ctx context.Context) ([]types.Record, error)
	SoldLogs(ctx context.Context) ([]types.Record, error)
	BidLogs(ctx context.Context) ([]types.Record, error)
}

type Row struct {
	Fingerprint string    `gorm:"primaryKey;size:64"`
	Stream      string    `gorm:"size:16;index;not null"`
	Payload     string    `gorm:"type:jsonb;not null"`
	ArchivedAt  time.Time `gorm:"not null"`
}

func (Row) TableName() string { return "admin_log_records" }

// Stats counts rows per stream: fetched from the server and newly stored.
type Stats struct {
	Fetched  map[string]int `json:"fetched"`
	Inserted map[string]int `json:"inserted"`
}

func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	log = logging.Or(log).Named("gorm")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.New(zap.NewStdLog(log), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	return db, nil
}

type Archiver struct {
	db  *gorm.DB
	src Source
	log *zap.Logger
	now func() time.Time
}

func New(db *gorm.DB, src Source, log *zap.Logger) *Archiver {
	return &Archiver{db: db, src: src, log: logging.Or(log).Named("archive"), now: time.Now}
}

func (a *Archiver) Migrate(ctx context.Context) error {
	return a.db.WithContext(ctx).AutoMigrate(&Row{})
}

// Run fetches every stream and stores the rows not archived yet.
func (a *Archiver) Run(ctx context.Context) (Stats, error) {
	fetch := map[string]func(context.Context) ([]types.Record, error){
		StreamActions: a.src.ActionLogs,
		StreamBattles: a.src.BattleLogs,
		StreamSold:    a.src.SoldLogs,
		StreamBids:    a.src.BidLogs,
	}

	results := make(map[string][]types.Record, len(fetch))
	type fetched struct {
		stream string
		recs   []types.Record
	}
	out := make(chan fetched, len(fetch))
	g, gctx := errgroup.WithContext(ctx)
	for stream, fn := range fetch {
		stream, fn := stream, fn
		g.Go(func() error {
			recs, err := fn(gctx)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", stream, err)
			}
			out <- fetched{stream: stream, recs: recs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	close(out)
	for f := range out {
		results[f.stream] = f.recs
	}

	stats := Stats{Fetched: map[string]int{}, Inserted: map[string]int{}}
	for stream, recs := range results {
		rows, err := Rows(stream, recs, a.now())
		if err != nil {
			return stats, err
		}
		stats.Fetched[stream] = len(recs)
		n, err := a.insert(ctx, rows)
		if err != nil {
			return stats, fmt.Errorf("store %s: %w", stream, err)
		}
		stats.Inserted[stream] = n
		a.log.Info("archived stream",
			zap.String("stream", stream),
			zap.Int("fetched", len(recs)),
			zap.Int("inserted", n),
		)
	}
	return stats, nil
}

func (a *Archiver) insert(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 200)
	return int(res.RowsAffected), res.Error
}

// Rows converts one stream's records, dropping duplicates within the batch.
func Rows(stream string, recs []types.Record, at time.Time) ([]Row, error) {
	rows := make([]Row, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		payload, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("archive: encode %s record: %w", stream, err)
		}
		fp := fingerprint(stream, payload)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		rows = append(rows, Row{Fingerprint: fp, Stream: stream, Payload: string(payload), ArchivedAt: at})
	}
	return rows, nil
}

// Fingerprint returns the row key of rec in stream. Map keys are encoded
// in sorted order, so equal records always hash the same.
func Fingerprint(stream string, rec types.Record) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return fingerprint(stream, payload), nil
}

func fingerprint(stream string, payload []byte) string {
	buf := make([]byte, 0, len(stream)+1+len(payload))
	buf = append(buf, stream...)
	buf = append(buf, 0)
	buf = append(buf, payload...)
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
