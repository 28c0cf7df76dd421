package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"
)

var _ Registry = &EtcdRegistry{}

// EtcdRegistry stores instances under prefix/id, attached to a lease so a crashed bridge
// disappears once the lease expires.
type EtcdRegistry struct {
	cli    *clientv3.Client
	prefix string
	ttl    int64
	logger *slog.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID
}

// NewEtcdRegistry connects to etcd using the provided endpoints and options.
func NewEtcdRegistry(endpoints []string, opts Options, logger *slog.Logger) (*EtcdRegistry, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("registry: at least one etcd endpoint is required")
	}

	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &EtcdRegistry{
		cli:    cli,
		prefix: normalizePrefix(opts.Prefix),
		ttl:    int64(ttl.Seconds()),
		logger: logger,
		leases: make(map[string]clientv3.LeaseID),
	}, nil
}

func (r *EtcdRegistry) Close() error {
	if r == nil || r.cli == nil {
		return nil
	}
	return r.cli.Close()
}

func (r *EtcdRegistry) Register(ctx context.Context, instance *Instance) error {
	if instance == nil {
		return ErrInstanceIsNil
	}
	if instance.ID == "" {
		return ErrInstanceIDIsEmpty
	}

	payload, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	lease, err := r.cli.Grant(ctx, r.ttl)
	if err != nil {
		return err
	}
	if _, err := r.cli.Put(ctx, r.key(instance.ID), string(payload), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	ch, err := r.cli.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.leases[instance.ID] = lease.ID
	r.mu.Unlock()

	go func() {
		for range ch {
		}
		r.logger.Debug("Lease keepalive stopped", "id", instance.ID)
	}()
	return nil
}

func (r *EtcdRegistry) Deregister(ctx context.Context, id string) error {
	if id == "" {
		return ErrInstanceIDIsEmpty
	}

	r.mu.Lock()
	lease, ok := r.leases[id]
	delete(r.leases, id)
	r.mu.Unlock()

	if ok {
		if _, err := r.cli.Revoke(ctx, lease); err != nil {
			r.logger.Warn("Failed to revoke lease", "id", id, "error", err)
		}
	}

	resp, err := r.cli.Delete(ctx, r.key(id))
	if err != nil {
		return err
	}
	if resp.Deleted == 0 && !ok {
		return ErrNotRegistered
	}
	return nil
}

func (r *EtcdRegistry) List(ctx context.Context) ([]*Instance, error) {
	resp, err := r.cli.Get(ctx, r.prefix+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]*Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst Instance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			r.logger.Error("failed to decode instance", "key", string(kv.Key), "error", err)
			continue
		}
		instances = append(instances, &inst)
	}
	return instances, nil
}

func (r *EtcdRegistry) key(id string) string {
	return r.prefix + "/" + id
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}
