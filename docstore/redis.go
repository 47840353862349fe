package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const maxTxAttempts = 16

// Redis stores the whole tree as one JSON value under "<ns>:tree". Writes run
// under WATCH so each one is atomic, and publish the written path on
// "<ns>:changes" for subscribers in every process sharing the namespace.
type Redis struct {
	client  *redis.Client
	key     string
	channel string
	log     logrus.FieldLogger

	hub    *hub
	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// NewRedis takes ownership of client and closes it on Close.
func NewRedis(ctx context.Context, client *redis.Client, namespace string, log logrus.FieldLogger) (*Redis, error) {
	r := &Redis{
		client:  client,
		key:     namespace + ":tree",
		channel: namespace + ":changes",
		log:     log,
	}
	r.hub = newHub(log, r.Get)

	r.pubsub = client.Subscribe(ctx, r.channel)
	if _, err := r.pubsub.Receive(ctx); err != nil {
		r.pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	r.wg.Add(1)
	go r.listen()

	return r, nil
}

func (r *Redis) listen() {
	defer r.wg.Done()

	for msg := range r.pubsub.Channel() {
		segs, err := splitPath(msg.Payload)
		if err != nil {
			r.log.WithError(err).WithField("payload", msg.Payload).Warn("ignoring change notification")
			continue
		}
		r.hub.notify(segs)
	}
}

func (r *Redis) load(ctx context.Context, g stringGetter) (any, error) {
	b, err := g.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.key, err)
	}
	return decodeTree(b)
}

func (r *Redis) Get(ctx context.Context, path string) (Snapshot, error) {
	segs, err := splitPath(path)
	if err != nil {
		return Snapshot{}, err
	}

	root, err := r.load(ctx, r.client)
	if err != nil {
		return Snapshot{}, err
	}

	v, ok := lookup(root, segs)
	return newSnapshot(segs, v, ok)
}

func (r *Redis) Set(ctx context.Context, path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	v, err := normalize(value)
	if err != nil {
		return err
	}

	return r.write(ctx, segs, func(root any) any { return assign(root, segs, v) })
}

func (r *Redis) Update(ctx context.Context, path string, fields map[string]any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	writes, err := fieldWrites(segs, fields)
	if err != nil {
		return err
	}

	return r.write(ctx, segs, func(root any) any { return applyWrites(root, writes) })
}

func (r *Redis) write(ctx context.Context, segs []string, fn func(any) any) error {
	txf := func(tx *redis.Tx) error {
		root, err := r.load(ctx, tx)
		if err != nil {
			return err
		}

		root = fn(root)

		var b []byte
		if root != nil {
			if b, err = json.Marshal(root); err != nil {
				return fmt.Errorf("encoding tree: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if b == nil {
				pipe.Del(ctx, r.key)
			} else {
				pipe.Set(ctx, r.key, b, 0)
			}
			pipe.Publish(ctx, r.channel, joinPath(segs))
			return nil
		})
		return err
	}

	for i := 0; i < maxTxAttempts; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", joinPath(segs), err)
		}
		return nil
	}

	return fmt.Errorf("writing %s: gave up after %d attempts: %w", joinPath(segs), maxTxAttempts, redis.TxFailedErr)
}

func (r *Redis) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	return r.hub.subscribe(ctx, path, fn)
}

func (r *Redis) Close() error {
	r.hub.close()

	err := r.pubsub.Close()
	r.wg.Wait()

	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}
