package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/rcliao/babbly/internal/events"
	"github.com/rcliao/babbly/internal/kv"
	"github.com/rcliao/babbly/internal/memories"
	"github.com/rcliao/babbly/internal/migrate"
)

// app is the wired set of components one command works with.
type app struct {
	kv     *kv.SQLiteStore
	events *events.Store
	book   *memories.Book
	log    *slog.Logger
	loc    *time.Location
}

// bootstrap opens the database, converts legacy data, loads the event store
// and memory book and subscribes the book to event changes. The initial scan
// picks up milestones reached by migrated data. Unreadable legacy data is
// logged and left in place so the journal stays usable.
func bootstrap(ctx context.Context, path string, log *slog.Logger, loc *time.Location) (*app, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	db, err := kv.NewSQLiteStore(path, log)
	if err != nil {
		return nil, err
	}

	res, err := migrate.New(db, migrate.WithLogger(log)).Run(ctx)
	switch {
	case errors.Is(err, migrate.ErrLegacyData):
		// Legacy data stays put; "babbly migrate" reports the details.
		log.Warn("legacy data not migrated", "err", err)
	case err != nil:
		db.Close()
		return nil, err
	case res.Rejected > 0:
		log.Warn("some legacy logs were not migrated", "rejected", res.Rejected)
	}

	evs, err := events.Open(ctx, db, events.WithLogger(log), events.WithClock(func() time.Time { return time.Now().In(loc) }))
	if err != nil {
		db.Close()
		return nil, err
	}
	book, err := memories.Open(ctx, db, memories.WithLogger(log))
	if err != nil {
		db.Close()
		return nil, err
	}
	evs.Subscribe(book)

	if err := book.EventsChanged(ctx, evs.Events()); err != nil {
		log.Warn("memory scan failed", "err", err)
	}

	return &app{kv: db, events: evs, book: book, log: log, loc: loc}, nil
}

func (a *app) Close() error {
	return a.kv.Close()
}

func (a *app) now() time.Time {
	return time.Now().In(a.loc)
}

func openApp(ctx context.Context) *app {
	a, err := bootstrap(ctx, getDBPath(), cfg.Logger(os.Stderr), location())
	if err != nil {
		exitErr("open store", err)
	}
	return a
}

func openKV() *kv.SQLiteStore {
	db, err := kv.NewSQLiteStore(getDBPath(), cfg.Logger(os.Stderr))
	if err != nil {
		exitErr("open store", err)
	}
	return db
}
