package registry

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInstanceIDIsEmpty = errors.New("registry: instance id is empty")
	ErrInstanceIsNil     = errors.New("registry: instance is nil")
	ErrNotRegistered     = errors.New("registry: instance not registered")
)

// Instance describes a running bridge and the module it hosts.
type Instance struct {
	ID         string    `json:"id"`
	Function   string    `json:"function"`
	Kind       string    `json:"kind"`
	Convention string    `json:"convention"`
	Encoding   string    `json:"encoding"`
	Address    string    `json:"address"`
	StartedAt  time.Time `json:"started_at"`
}

// Registry announces bridge instances so a front proxy can route to them.
type Registry interface {
	// Register publishes the instance and keeps it alive until ctx is cancelled or
	// Deregister is called.
	Register(ctx context.Context, instance *Instance) error
	Deregister(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Instance, error)
	Close() error
}

// Options configures the etcd registry.
type Options struct {
	// Prefix controls where instances are stored. Defaults to DefaultPrefix when empty.
	Prefix string
	// DialTimeout overrides the etcd dial timeout. Zero uses DefaultDialTimeout.
	DialTimeout time.Duration
	// TTL is the lease time to live. Zero uses DefaultTTL.
	TTL time.Duration
}

const (
	DefaultPrefix      = "fnbridge/instances"
	DefaultDialTimeout = 5 * time.Second
	DefaultTTL         = 10 * time.Second
)
