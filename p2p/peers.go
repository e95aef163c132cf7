package p2p

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrEmptyPeer     = errors.New("peer url is empty")
	ErrSelfPeer      = errors.New("peer url is this node")
	ErrDuplicatePeer = errors.New("peer already registered")
)

// NormalizePeerURL trims whitespace and trailing slashes so "http://a:1/" and
// "http://a:1" register once
func NormalizePeerURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}

// PeerManager is the set of peer URLs known to one node. It never contains the
// node's own URL and only grows.
type PeerManager struct {
	mu    sync.RWMutex
	self  string
	peers []string
	known map[string]struct{}
}

func NewPeerManager(self string) *PeerManager {
	return &PeerManager{
		self:  NormalizePeerURL(self),
		peers: make([]string, 0),
		known: make(map[string]struct{}),
	}
}

// AddPeer registers url unless it is empty, this node, or already known
func (pm *PeerManager) AddPeer(url string) error {
	url = NormalizePeerURL(url)
	if url == "" {
		return ErrEmptyPeer
	}
	if url == pm.self {
		return errors.Wrap(ErrSelfPeer, url)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, ok := pm.known[url]; ok {
		return errors.Wrap(ErrDuplicatePeer, url)
	}
	pm.known[url] = struct{}{}
	pm.peers = append(pm.peers, url)
	return nil
}

// BulkResult reports which urls of a bulk registration were added
type BulkResult struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// AddPeers registers each url independently
func (pm *PeerManager) AddPeers(urls []string) BulkResult {
	res := BulkResult{
		Added:   make([]string, 0, len(urls)),
		Skipped: make([]string, 0),
	}
	for _, url := range urls {
		if err := pm.AddPeer(url); err != nil {
			res.Skipped = append(res.Skipped, url)
			continue
		}
		res.Added = append(res.Added, NormalizePeerURL(url))
	}
	return res
}

// GetPeers returns the registered peers in registration order
func (pm *PeerManager) GetPeers() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]string, len(pm.peers))
	copy(out, pm.peers)
	return out
}

func (pm *PeerManager) HasPeer(url string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	_, ok := pm.known[NormalizePeerURL(url)]
	return ok
}

func (pm *PeerManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers)
}

// Self returns this node's own URL
func (pm *PeerManager) Self() string {
	return pm.self
}
