package habbo

import (
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// proxyPool hands out a random proxy per request attempt. The upstream
// API throttles by IP, so every retry goes out through a different exit.
type proxyPool struct {
	mu   sync.Mutex
	urls []*url.URL
	rng  *rand.Rand
}

func newProxyPool(raw []string) (*proxyPool, error) {
	p := &proxyPool{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", r, err)
		}
		p.urls = append(p.urls, u)
	}
	return p, nil
}

// transport returns a transport routed through a random pool member, or a
// direct one when the pool is empty.
func (p *proxyPool) transport() *http.Transport {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := &http.Transport{}
	if len(p.urls) > 0 {
		t.Proxy = http.ProxyURL(p.urls[p.rng.Intn(len(p.urls))])
	}
	return t
}

func (p *proxyPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.urls)
}
