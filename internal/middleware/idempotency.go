package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"
)

// IdempotencyStore remembers responses by Idempotency-Key so that a retried
// join or leave is answered from cache instead of being applied twice.
type IdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
	inFlight  bool
	done      chan struct{}
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration // How long to keep responses (default 24h)
	Cleanup time.Duration // Cleanup interval (default 1h)
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup == 0 {
		cfg.Cleanup = time.Hour
	}

	store := &IdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	go store.cleanupLoop(cfg.Cleanup)

	return store
}

// Stop stops the cleanup goroutine
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Len returns the number of remembered responses
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *IdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *IdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if !entry.inFlight && entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// claim returns a finished entry to replay, or registers key as in flight
// and returns nil. Concurrent duplicates wait for the first request.
func (s *IdempotencyStore) claim(key string) *idempotencyEntry {
	for {
		s.mu.Lock()
		entry, ok := s.entries[key]
		switch {
		case !ok, !entry.inFlight && !entry.expiresAt.After(s.now()):
			entry = &idempotencyEntry{inFlight: true, done: make(chan struct{})}
			s.entries[key] = entry
			s.mu.Unlock()
			return nil
		case entry.inFlight:
			done := entry.done
			s.mu.Unlock()
			<-done
		default:
			s.mu.Unlock()
			return entry
		}
	}
}

// finish records the response for key. Server errors are not remembered so
// the client can retry them.
func (s *IdempotencyStore) finish(key string, status int, headers http.Header, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[key]
	if entry == nil {
		return
	}
	if status >= http.StatusInternalServerError {
		delete(s.entries, key)
	} else {
		entry.status = status
		entry.headers = headers
		entry.body = body
		entry.expiresAt = s.now().Add(s.ttl)
		entry.inFlight = false
	}
	close(entry.done)
}

// generateKey creates a unique key from user ID, idempotency key, and request fingerprint
func generateKey(userID, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{userID, idempotencyKey, method, path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency returns middleware that honours Idempotency-Key on POST and
// DELETE requests
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := r.Header.Get("Idempotency-Key")
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			// The bearer token identifies the caller before Auth has run
			caller := r.Header.Get("Authorization")
			if caller == "" {
				caller = clientIP(r)
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := generateKey(caller, idempotencyKey, r.Method, r.URL.Path, body)

			if cached := store.claim(key); cached != nil {
				replay(w, cached)
				return
			}

			irw := &idempotencyResponseWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if p := recover(); p != nil {
					store.finish(key, http.StatusInternalServerError, nil, nil)
					panic(p)
				}
				store.finish(key, irw.status, irw.Header().Clone(), irw.body.Bytes())
			}()
			next.ServeHTTP(irw, r)
		})
	}
}

func replay(w http.ResponseWriter, entry *idempotencyEntry) {
	for k, v := range entry.headers {
		for _, val := range v {
			w.Header().Add(k, val)
		}
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(entry.status)
	_, _ = w.Write(entry.body)
}
