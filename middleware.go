package main

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"bootcamps/models"
	"bootcamps/pkg/apperr"
	"bootcamps/pkg/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDKey  = "request_id"
	identityKey   = "identity"
	authCookie    = "authToken"
	requestHeader = "X-Request-ID"
)

// requestLogger tags each request with an id (kept from X-Request-ID when the
// client sends one) and logs it when the handler returns.
func requestLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(requestHeader)
		if rid == "" || len(rid) > 64 {
			rid = ksuid.New().String()
		}
		c.Set(requestIDKey, rid)
		c.Header(requestHeader, rid)

		c.Next()

		l.Info("request",
			zap.String("request_id", rid),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// limitJSONBody caps JSON request bodies; multipart uploads have their own limits.
func limitJSONBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && isJSONRequest(c) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// corsPolicy allows any origin unless origins is set. Credentials are only
// allowed for an explicit origin list.
func corsPolicy(origins []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestHeader},
		ExposeHeaders: []string{requestHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
		conf.AllowCredentials = true
	}
	return cors.New(conf)
}

const errTooManyRequests = "Too many requests from this IP, please try again in an hour!"

// ipLimiter hands each client IP a token bucket refilled at n per window.
// Buckets idle for a full window are dropped, since a full bucket is the same
// as a fresh one.
type ipLimiter struct {
	mu      sync.Mutex
	burst   int
	window  time.Duration
	every   rate.Limit
	now     func() time.Time
	clients map[string]*ipBucket
	sweepAt int
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newIPLimiter(n int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		burst:   n,
		window:  window,
		every:   rate.Every(window / time.Duration(n)),
		now:     time.Now,
		clients: make(map[string]*ipBucket),
		sweepAt: 1024,
	}
}

// allow reports whether ip may proceed and, if not, how long until it may.
func (l *ipLimiter) allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if len(l.clients) >= l.sweepAt {
		l.sweep(now)
	}
	b, ok := l.clients[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.clients[ip] = b
	}
	b.seen = now
	r := b.lim.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

func (l *ipLimiter) sweep(now time.Time) {
	for ip, b := range l.clients {
		if now.Sub(b.seen) >= l.window {
			delete(l.clients, ip)
		}
	}
	if len(l.clients) >= l.sweepAt {
		l.sweepAt *= 2
	}
}

// rateLimit rejects clients over n requests per window with 429. An n of
// zero turns it off.
func rateLimit(n int, window time.Duration) gin.HandlerFunc {
	if n <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	l := newIPLimiter(n, window)
	return func(c *gin.Context) {
		ok, wait := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(max(1, int(wait.Round(time.Second)/time.Second))))
			respondError(c, apperr.RateLimited(errTooManyRequests))
			return
		}
		c.Next()
	}
}

// protect requires a valid session token from the Authorization header or,
// failing that, the auth cookie.
func protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := sessions.Verify(c.Request.Context(), tokenFromRequest(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(authCookie); err == nil {
		return v
	}
	return ""
}

// restrictTo must run after protect.
func restrictTo(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := session.Authorize(currentUser(c).Role, roles...); err != nil {
			respondError(c, err)
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) *session.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*session.Identity)
	return id
}

// currentUser returns the authenticated user, or an empty user (no role) on
// public routes.
func currentUser(c *gin.Context) *models.User {
	if id := currentIdentity(c); id != nil && id.User != nil {
		return id.User
	}
	return &models.User{}
}

// setAuthCookie mirrors the token into an HttpOnly cookie. Secure is set when
// the request arrived over TLS directly or through a TLS-terminating proxy.
func setAuthCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cfg.CookieTTL),
		HttpOnly: true,
		Secure:   isSecure(c),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAuthCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure(c),
	})
}

func isSecure(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}

func requestScheme(c *gin.Context) string {
	if isSecure(c) {
		return "https"
	}
	return "http"
}
