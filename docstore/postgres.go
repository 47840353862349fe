package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/artacademy/storefront/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Postgres keeps the tree in one jsonb row per namespace of the documents
// table. Writes lock the row for the length of a transaction and announce
// the written path with pg_notify once committed.
type Postgres struct {
	db        *sqlx.DB
	namespace string
	channel   string
	log       logrus.FieldLogger

	hub      *hub
	listener *pq.Listener
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewPostgres takes ownership of db and closes it on Close. connStr is used
// to open the dedicated LISTEN connection.
func NewPostgres(ctx context.Context, db *sqlx.DB, connStr string, namespace string, log logrus.FieldLogger) (*Postgres, error) {
	p := &Postgres{
		db:        db,
		namespace: namespace,
		channel:   "docstore_" + namespace,
		log:       log,
		done:      make(chan struct{}),
	}
	p.hub = newHub(log, p.Get)

	report := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).WithField("event", ev).Warn("postgres listener")
		}
	}
	p.listener = pq.NewListener(connStr, 100*time.Millisecond, time.Minute, report)
	if err := p.listener.Listen(p.channel); err != nil {
		p.listener.Close()
		return nil, fmt.Errorf("listening on %s: %w", p.channel, err)
	}

	p.wg.Add(1)
	go p.listen()

	return p, nil
}

func (p *Postgres) listen() {
	defer p.wg.Done()

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case n, ok := <-p.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect: notifications may have been lost.
			if n == nil {
				p.hub.notifyAll()
				continue
			}
			segs, err := splitPath(n.Extra)
			if err != nil {
				p.log.WithError(err).WithField("payload", n.Extra).Warn("ignoring change notification")
				continue
			}
			p.hub.notify(segs)

		case <-ping.C:
			go p.listener.Ping()

		case <-p.done:
			return
		}
	}
}

func (p *Postgres) Get(ctx context.Context, path string) (Snapshot, error) {
	segs, err := splitPath(path)
	if err != nil {
		return Snapshot{}, err
	}

	const q = `SELECT body #> $2::text[] FROM documents WHERE namespace = $1`

	var body []byte
	err = p.db.GetContext(ctx, &body, q, p.namespace, pq.Array(segs))
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{Path: joinPath(segs)}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading %s: %w", joinPath(segs), err)
	}

	v, err := decodeTree(body)
	if err != nil {
		return Snapshot{}, err
	}
	return newSnapshot(segs, v, v != nil)
}

func (p *Postgres) Set(ctx context.Context, path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	v, err := normalize(value)
	if err != nil {
		return err
	}

	return p.write(ctx, segs, func(root any) any { return assign(root, segs, v) })
}

func (p *Postgres) Update(ctx context.Context, path string, fields map[string]any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	writes, err := fieldWrites(segs, fields)
	if err != nil {
		return err
	}

	return p.write(ctx, segs, func(root any) any { return applyWrites(root, writes) })
}

func (p *Postgres) write(ctx context.Context, segs []string, fn func(any) any) error {
	const (
		qInit   = `INSERT INTO documents (namespace, body) VALUES ($1, NULL) ON CONFLICT (namespace) DO NOTHING`
		qLock   = `SELECT body FROM documents WHERE namespace = $1 FOR UPDATE`
		qSave   = `UPDATE documents SET body = $2::jsonb, updated_at = now() WHERE namespace = $1`
		qNotify = `SELECT pg_notify($1, $2)`
	)

	err := database.Transaction(ctx, p.db, func(tx sqlx.ExtContext) error {
		if _, err := tx.ExecContext(ctx, qInit, p.namespace); err != nil {
			return fmt.Errorf("initialising namespace: %w", err)
		}

		var body []byte
		if err := sqlx.GetContext(ctx, tx, &body, qLock, p.namespace); err != nil {
			return fmt.Errorf("locking namespace: %w", err)
		}

		root, err := decodeTree(body)
		if err != nil {
			return err
		}
		root = fn(root)

		var saved sql.NullString
		if root != nil {
			b, err := json.Marshal(root)
			if err != nil {
				return fmt.Errorf("encoding tree: %w", err)
			}
			saved = sql.NullString{String: string(b), Valid: true}
		}

		if _, err := tx.ExecContext(ctx, qSave, p.namespace, saved); err != nil {
			return fmt.Errorf("saving tree: %w", err)
		}

		if _, err := tx.ExecContext(ctx, qNotify, p.channel, joinPath(segs)); err != nil {
			return fmt.Errorf("notifying change: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("writing %s: %w", joinPath(segs), err)
	}
	return nil
}

func (p *Postgres) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	return p.hub.subscribe(ctx, path, fn)
}

func (p *Postgres) Close() error {
	p.hub.close()

	close(p.done)
	err := p.listener.Close()
	p.wg.Wait()

	if cerr := p.db.Close(); err == nil {
		err = cerr
	}
	return err
}
