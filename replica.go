package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var errNoReplica = errors.New("no reachable LLM endpoint")

type replica struct {
	host   string
	weight uint
}

// ping reports whether the host answers at all. Any status below 500 counts.
func (r replica) ping(ctx context.Context, client *http.Client) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.host, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// replicaManager hands out upstream base URLs in weighted round robin order.
type replicaManager struct {
	iter     uint // uses of the current replica
	pointer  int  // current replica
	replicas []replica
	client   *http.Client
	mu       sync.Mutex
}

func newReplicaManager(client *http.Client) *replicaManager {
	if client == nil {
		client = &http.Client{}
	}
	return &replicaManager{client: client}
}

func (r *replicaManager) addReplica(host string, weight uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if weight == 0 {
		weight = 1
	}
	r.replicas = append(r.replicas, replica{host, weight})
}

func (r *replicaManager) loadReplicas(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("reading endpoints %s: %w", path, err)
	}

	var replicaConfig []struct {
		Host   string `json:"host"`
		Weight uint   `json:"weight"`
	}
	if err := json.Unmarshal(data, &replicaConfig); err != nil {
		return fmt.Errorf("parsing endpoints %s: %w", path, err)
	}

	for _, c := range replicaConfig {
		if c.Host == "" {
			return fmt.Errorf("parsing endpoints %s: empty host", path)
		}
		r.addReplica(c.Host, c.Weight)
	}
	return nil
}

func (r *replicaManager) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replicas)
}

// pick returns the next reachable host. Each replica is probed at most once.
func (r *replicaManager) pick(ctx context.Context) (string, error) {
	n := r.len()
	if n == 0 {
		return "", errNoReplica
	}

	current := r.next()
	for tries := 1; !current.ping(ctx, r.client); tries++ {
		log.Warn().Str("host", current.host).Msg("LLM endpoint unreachable, skipping")
		if tries >= n {
			return "", errNoReplica
		}
		current = r.skip()
	}
	return current.host, nil
}

func (r *replicaManager) next() replica {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.iter >= r.replicas[r.pointer].weight {
		r.iter = 0
		r.pointer = (r.pointer + 1) % len(r.replicas)
	}
	r.iter++
	return r.replicas[r.pointer]
}

func (r *replicaManager) skip() replica {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iter = 1
	r.pointer = (r.pointer + 1) % len(r.replicas)
	return r.replicas[r.pointer]
}
