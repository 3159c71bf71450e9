// Package gateway implements the REST API server in front of the
// resolvers.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/bchgate/config"
	klog "github.com/Klingon-tech/bchgate/internal/log"
	"github.com/Klingon-tech/bchgate/internal/resolver"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// requestIDHeader carries the request id in both directions.
const requestIDHeader = "X-Request-ID"

// Resolver is the resolution surface the gateway exposes.
type Resolver interface {
	ResolvePublicKey(ctx context.Context, address string) (resolver.Result, error)
	ResolveMutableData(ctx context.Context, documentHash string) (resolver.Result, error)
}

// TokenIndex looks up the document hash of a token.
type TokenIndex interface {
	TokenDocumentHash(ctx context.Context, tokenID types.TokenID) (string, error)
}

// HealthCheck probes a backing service.
type HealthCheck func(ctx context.Context) error

// Server is the REST HTTP server.
type Server struct {
	addr        string
	resolver    Resolver
	tokens      TokenIndex  // nil disables token lookups.
	health      HealthCheck // nil reports healthy unconditionally.
	maxBulk     int
	limiter     *ipLimiter // nil = unlimited.
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.
}

// New creates a new gateway server. A zero-value GatewayConfig allows all
// IPs, disables CORS and rate limiting, and allows one address per bulk
// request.
func New(addr string, res Resolver, cfg config.GatewayConfig) *Server {
	s := &Server{
		addr:        addr,
		resolver:    res,
		maxBulk:     cfg.MaxBulk,
		logger:      klog.Gateway,
		allowedNets: parseAllowedIPs(cfg.AllowedIPs),
		corsOrigins: cfg.CORSOrigins,
	}
	if s.maxBulk < 1 {
		s.maxBulk = 1
	}
	if cfg.RateLimit > 0 {
		s.limiter = newIPLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/address/pubkey/{address}", s.handlePubKey)
	mux.HandleFunc("POST /v1/address/pubkey", s.handleBulkPubKey)
	mux.HandleFunc("GET /v1/slp/mutable/{documentHash}", s.handleMutableData)
	mux.HandleFunc("GET /v1/slp/mutable/token/{tokenId}", s.handleTokenMutableData)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.server = &http.Server{
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A bulk request runs several resolutions, each bounded by the
		// resolver timeout.
		WriteTimeout: 5 * time.Minute,
	}

	return s
}

// SetTokenIndex enables GET /v1/slp/mutable/token/{tokenId}.
func (s *Server) SetTokenIndex(ti TokenIndex) {
	s.tokens = ti
}

// SetHealthCheck sets the probe behind GET /healthz.
func (s *Server) SetHealthCheck(fn HealthCheck) {
	s.health = fn
}

// Handler returns the server's HTTP handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		// Try as a single IP (add /32 or /128).
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// statusRecorder captures the response status for access logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// middleware applies request ids, IP filtering, CORS and rate limiting
// in front of the routes, and logs every request.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requestID(r)
		w.Header().Set(requestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ip := clientIP(r)
		defer func() {
			s.logger.Debug().
				Str("req", id).
				Str("ip", ip).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", time.Since(start)).
				Msg("Request")
		}()

		// IP filtering.
		if len(s.allowedNets) > 0 {
			parsed := net.ParseIP(ip)
			if parsed == nil || !s.isIPAllowed(parsed) {
				http.Error(rec, "forbidden", http.StatusForbidden)
				return
			}
		}

		// CORS headers.
		s.setCORSHeaders(rec, r)

		// Handle CORS preflight.
		if r.Method == http.MethodOptions {
			rec.WriteHeader(http.StatusNoContent)
			return
		}

		if s.limiter != nil && !s.limiter.Allow(ip) {
			writeJSON(rec, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}

		r.Body = http.MaxBytesReader(rec, r.Body, maxBodySize)
		ctx := resolver.WithRequestID(r.Context(), id)
		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

// requestID returns the caller's request id when it is a sane token,
// otherwise a fresh one.
func requestID(r *http.Request) string {
	id := r.Header.Get(requestIDHeader)
	if id == "" || len(id) > 64 || strings.ContainsAny(id, " \t\r\n") {
		return uuid.NewString()
	}
	return id
}

// clientIP returns the remote host of r without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	// Check if origin is allowed.
	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			allowed = true
			break
		}
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
	}
}
