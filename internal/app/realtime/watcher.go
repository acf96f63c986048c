package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Watcher tails MongoDB change streams on the members and messages
// collections and republishes each change on a Hub. Change streams need a
// replica set; single-node development servers should use local mode.
type Watcher struct {
	db    *mongo.Database
	hub   *Hub
	log   *zap.Logger
	retry time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWatcher creates a watcher publishing to hub.
func NewWatcher(db *mongo.Database, hub *Hub, logger *zap.Logger) *Watcher {
	return &Watcher{db: db, hub: hub, log: logger, retry: 2 * time.Second}
}

// Start launches one goroutine per table. It returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.run(ctx, TableMessages, []string{"insert"})
	go w.run(ctx, TableMembers, []string{"insert", "update", "replace"})

	w.log.Info("realtime watcher started", zap.Duration("retry", w.retry))
}

// Stop cancels the streams and waits for both goroutines to exit.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
		w.log.Info("realtime watcher stopped")
	})
}

type changeDoc struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
}

// run keeps a stream open on table, reopening it after errors. Events
// written while the stream was down are not replayed, so every reopen after
// the first is followed by a RESYNC telling subscribers to bulk-fetch.
func (w *Watcher) run(ctx context.Context, table string, ops []string) {
	defer w.wg.Done()

	coll := w.db.Collection(table)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": ops}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	first := true
	for ctx.Err() == nil {
		cs, err := coll.Watch(ctx, pipeline, opts)
		if err != nil {
			w.log.Warn("change stream open failed",
				zap.String("table", table), zap.Error(err))
			if !w.sleep(ctx) {
				return
			}
			continue
		}

		if !first {
			w.hub.Publish(Event{Op: OpResync, Table: table})
			w.log.Info("change stream reopened", zap.String("table", table))
		}
		first = false

		err = w.consume(ctx, cs, table)
		cs.Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		w.log.Warn("change stream interrupted",
			zap.String("table", table), zap.Error(err))
		if !w.sleep(ctx) {
			return
		}
	}
}

func (w *Watcher) consume(ctx context.Context, cs *mongo.ChangeStream, table string) error {
	for cs.Next(ctx) {
		var ch changeDoc
		if err := cs.Decode(&ch); err != nil {
			w.log.Warn("change event decode failed", zap.String("table", table), zap.Error(err))
			continue
		}
		ev, ok := toEvent(table, ch)
		if !ok {
			continue
		}
		w.hub.Publish(ev)
	}
	if err := cs.Err(); err != nil {
		return err
	}
	return errors.New("change stream closed")
}

// toEvent maps a raw change document onto an Event. Updates whose document
// was deleted before the lookup carry no full document and are dropped.
func toEvent(table string, ch changeDoc) (Event, bool) {
	if len(ch.FullDocument) == 0 {
		return Event{}, false
	}
	op := OpInsert
	if ch.OperationType != "insert" {
		op = OpUpdate
	}

	switch table {
	case TableMessages:
		var m models.Message
		if err := bson.Unmarshal(ch.FullDocument, &m); err != nil {
			return Event{}, false
		}
		return MessageInserted(m), true
	case TableMembers:
		var m models.Member
		if err := bson.Unmarshal(ch.FullDocument, &m); err != nil {
			return Event{}, false
		}
		return MemberChanged(op, m), true
	}
	return Event{}, false
}

func (w *Watcher) sleep(ctx context.Context) bool {
	t := time.NewTimer(w.retry)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
