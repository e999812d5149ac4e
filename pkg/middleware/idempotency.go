package middleware

import (
	"bytes"
	"crypto/sha256"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "studiobook/pkg/errors"
)

const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore tracks keyed requests from reservation until their
// response expires.
type IdempotencyStore interface {
	// Reserve claims key for a new request. When key is already known it
	// returns the entry instead and reserved is false.
	Reserve(key string, fingerprint [32]byte) (entry *IdempotencyEntry, reserved bool)
	// Complete stores the response for a reserved key. A nil response drops
	// the reservation so the request may be retried.
	Complete(key string, response *CachedResponse)
	Stop()
}

type CachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IdempotencyEntry is either in flight (Response nil) or finished.
type IdempotencyEntry struct {
	Fingerprint [32]byte
	Response    *CachedResponse
	CreatedAt   time.Time
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*IdempotencyEntry
	ttl      time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]*IdempotencyEntry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

func (s *InMemoryIdempotencyStore) Reserve(key string, fingerprint [32]byte) (*IdempotencyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Sub(e.CreatedAt) <= s.ttl {
		snapshot := *e
		return &snapshot, false
	}
	s.entries[key] = &IdempotencyEntry{Fingerprint: fingerprint, CreatedAt: now}
	return nil, true
}

func (s *InMemoryIdempotencyStore) Complete(key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return
	}
	if response == nil {
		delete(s.entries, key)
		return
	}
	e.Response = response
	e.CreatedAt = s.now()
}

func (s *InMemoryIdempotencyStore) evictLoop() {
	ticker := time.NewTicker(max(s.ttl, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, e := range s.entries {
		// in-flight entries are released by Complete, never by age
		if e.Response != nil && now.Sub(e.CreatedAt) > s.ttl {
			delete(s.entries, key)
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the first successful response to a mutating request
// carrying the same Idempotency-Key from the same actor on the same route. A
// retried booking therefore returns the original booking instead of a
// DUPLICATE_BOOKING error. Reusing a key with a different body is rejected,
// as is a second request while the first is still running.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = IdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(headerName)
			if key == "" || !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			key = actorID(r) + "|" + r.Method + "|" + r.URL.Path + "|" + key

			var body []byte
			if r.Body != nil {
				var err error
				if body, err = io.ReadAll(r.Body); err != nil {
					_ = apperrors.WriteError(w, apperrors.InvalidInput("Failed to read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}
			fingerprint := sha256.Sum256(body)

			entry, reserved := store.Reserve(key, fingerprint)
			if !reserved {
				switch {
				case entry.Fingerprint != fingerprint:
					_ = apperrors.WriteError(w, apperrors.New(apperrors.CodeValidation,
						"Idempotency-Key was already used with a different request body", http.StatusUnprocessableEntity))
				case entry.Response == nil:
					e := apperrors.Conflict("A request with this Idempotency-Key is still being processed")
					e.Retryable = true
					_ = apperrors.WriteError(w, e)
				default:
					replay(w, entry.Response)
				}
				return
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			finished := false
			defer func() {
				if finished && capture.statusCode >= 200 && capture.statusCode < 300 {
					store.Complete(key, &CachedResponse{
						StatusCode: capture.statusCode,
						Headers:    w.Header().Clone(),
						Body:       capture.body.Bytes(),
					})
					return
				}
				store.Complete(key, nil)
			}()
			next.ServeHTTP(capture, r)
			finished = true
		})
	}
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
