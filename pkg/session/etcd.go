package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// keyPrefix namespaces shopctl keys so the cluster can be shared.
const keyPrefix = "/shopctl/v1/credentials"

// EtcdProvider keeps credentials in etcd, so a team of operators (or a
// bastion host running the dashboard) share one admin session. Values are
// stored as JSON under /shopctl/v1/credentials/<profile>.
type EtcdProvider struct {
	client  *clientv3.Client
	profile string
	owned   bool
}

// NewEtcdProvider dials the etcd cluster at endpoints. The caller must call
// Close when finished.
func NewEtcdProvider(endpoints []string, profile string) (*EtcdProvider, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd dial: %w", err)
	}
	p := NewEtcdProviderFromClient(client, profile)
	p.owned = true
	return p, nil
}

// NewEtcdProviderFromClient wraps an existing client. Close will not close it.
func NewEtcdProviderFromClient(client *clientv3.Client, profile string) *EtcdProvider {
	if profile == "" {
		profile = "default"
	}
	return &EtcdProvider{client: client, profile: profile}
}

func (p *EtcdProvider) key() string {
	return fmt.Sprintf("%s/%s", keyPrefix, p.profile)
}

func (p *EtcdProvider) Load(ctx context.Context) (Credentials, error) {
	resp, err := p.client.Get(ctx, p.key())
	if err != nil {
		return Credentials{}, fmt.Errorf("etcd get %q: %w", p.key(), err)
	}
	if len(resp.Kvs) == 0 {
		return Credentials{}, ErrNoCredentials
	}
	var c Credentials
	if err := json.Unmarshal(resp.Kvs[0].Value, &c); err != nil {
		return Credentials{}, fmt.Errorf("unmarshal %q: %w", p.key(), err)
	}
	if !c.Valid() {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

func (p *EtcdProvider) Save(ctx context.Context, c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := p.client.Put(ctx, p.key(), string(data)); err != nil {
		return fmt.Errorf("etcd put %q: %w", p.key(), err)
	}
	return nil
}

func (p *EtcdProvider) Clear(ctx context.Context) error {
	if _, err := p.client.Delete(ctx, p.key()); err != nil {
		return fmt.Errorf("etcd delete %q: %w", p.key(), err)
	}
	return nil
}

// Close releases the etcd connection if this provider dialled it.
func (p *EtcdProvider) Close() error {
	if !p.owned {
		return nil
	}
	return p.client.Close()
}
