package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayHeader      = "X-Idempotent-Replay"

	DefaultIdempotencyTTL = 24 * time.Hour
)

// ErrFingerprintMismatch is returned when a key is reused for a different request
var ErrFingerprintMismatch = errors.New("idempotency key reserved for a different request")

// ReservationState is the outcome of reserving a key
type ReservationState int

const (
	ReservationNew ReservationState = iota
	ReservationCompleted
	ReservationPending
)

// StoredResponse is a captured response that can be replayed
type StoredResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Reservation is the result of IdempotencyStore.Reserve
type Reservation struct {
	State    ReservationState
	Response StoredResponse
}

// IdempotencyStore persists key reservations and completed responses
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp StoredResponse, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key string) error
	CleanupExpired(ctx context.Context, now time.Time) (int, error)
}

type idempotencyRecord struct {
	fingerprint string
	completed   bool
	response    StoredResponse
	expiresAt   time.Time
}

// MemoryIdempotencyStore keeps reservations in process memory
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]idempotencyRecord
}

// NewMemoryIdempotencyStore creates an empty store
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{records: make(map[string]idempotencyRecord)}
}

// Reserve implements IdempotencyStore
func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || !now.Before(rec.expiresAt) {
		s.records[key] = idempotencyRecord{fingerprint: fingerprint, expiresAt: now.Add(ttl)}
		return Reservation{State: ReservationNew}, nil
	}
	if rec.fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}
	if rec.completed {
		return Reservation{State: ReservationCompleted, Response: rec.response}, nil
	}
	return Reservation{State: ReservationPending}, nil
}

// SaveResponse implements IdempotencyStore
func (s *MemoryIdempotencyStore) SaveResponse(_ context.Context, key, fingerprint string, resp StoredResponse, now time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && rec.fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	resp.Headers = resp.Headers.Clone()
	resp.Body = append([]byte(nil), resp.Body...)
	s.records[key] = idempotencyRecord{
		fingerprint: fingerprint,
		completed:   true,
		response:    resp,
		expiresAt:   now.Add(ttl),
	}
	return nil
}

// Release implements IdempotencyStore
func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

// CleanupExpired implements IdempotencyStore
func (s *MemoryIdempotencyStore) CleanupExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if !now.Before(rec.expiresAt) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Idempotency replays the stored response when a POST is retried with the same
// Idempotency-Key. Requests without the header pass straight through.
// Only 2xx responses are stored; failures release the key so the client may retry.
func Idempotency(store IdempotencyStore, logger *zap.Logger, ttl time.Duration) func(next http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	now := time.Now

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeMiddlewareError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			identity := "anonymous"
			if p, ok := PrincipalFromContext(r.Context()); ok {
				identity = p.Role.String() + ":" + strconv.FormatInt(p.ID, 10)
			}
			scoped := identity + "|" + key
			fingerprint := requestFingerprint(r, body, identity)

			res, err := store.Reserve(r.Context(), scoped, fingerprint, now(), ttl)
			switch {
			case errors.Is(err, ErrFingerprintMismatch):
				writeMiddlewareError(w, http.StatusConflict, "Idempotency key already used for a different request")
				return
			case err != nil:
				logger.Error("idempotency reserve failed", zap.String("key", key), zap.Error(err))
				writeMiddlewareError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			switch res.State {
			case ReservationCompleted:
				replay(w, res.Response)
				logger.Debug("idempotent replay", zap.String("key", key), zap.String("path", r.URL.Path))
				return
			case ReservationPending:
				writeMiddlewareError(w, http.StatusConflict, "Request with this idempotency key is still processing")
				return
			}

			rec := &responseRecorder{header: make(http.Header)}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			if rec.status >= 200 && rec.status < 300 {
				resp := StoredResponse{Status: rec.status, Headers: rec.header, Body: rec.body.Bytes()}
				if err := store.SaveResponse(r.Context(), scoped, fingerprint, resp, now(), ttl); err != nil {
					logger.Error("idempotency save failed", zap.String("key", key), zap.Error(err))
				}
			} else if err := store.Release(r.Context(), scoped); err != nil {
				logger.Error("idempotency release failed", zap.String("key", key), zap.Error(err))
			}

			rec.commit(w)
		})
	}
}

func requestFingerprint(r *http.Request, body []byte, identity string) string {
	sum := sha256.New()
	sum.Write([]byte(r.Method + "|" + r.URL.Path + "|" + r.URL.RawQuery + "|" + identity + "|"))
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

func replay(w http.ResponseWriter, resp StoredResponse) {
	for k, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func writeMiddlewareError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// responseRecorder buffers a handler's response until it is committed
type responseRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(p)
}

func (r *responseRecorder) commit(w http.ResponseWriter) {
	for k, values := range r.header {
		w.Header()[k] = values
	}
	w.WriteHeader(r.status)
	_, _ = w.Write(r.body.Bytes())
}
