package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const IdempotencyHeader = "Idempotency-Key"

type storedResponse struct {
	pending     bool
	status      int
	contentType string
	body        []byte
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response when a client repeats a request
// with the same Idempotency-Key. Keys are scoped to the caller and the route.
// Server errors are not stored so the client can retry them.
func Idempotency(ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	store := cache.New(ttl, 2*ttl)
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}
		scoped := c.GetString(KeyEmail) + "|" + c.Request.Method + " " + c.Request.URL.Path + "|" + key

		if err := store.Add(scoped, storedResponse{pending: true}, cache.DefaultExpiration); err != nil {
			v, _ := store.Get(scoped)
			prev, _ := v.(storedResponse)
			if prev.pending {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is in progress"})
				return
			}
			c.Header("Idempotent-Replayed", "true")
			c.Data(prev.status, prev.contentType, prev.body)
			c.Abort()
			return
		}

		stored := false
		// also runs when the handler panics
		defer func() {
			if !stored {
				store.Delete(scoped)
			}
		}()

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		store.Set(scoped, storedResponse{
			status:      status,
			contentType: w.Header().Get("Content-Type"),
			body:        w.buf.Bytes(),
		}, cache.DefaultExpiration)
		stored = true
	}
}
