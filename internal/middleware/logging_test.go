package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	var seenID string
	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))

	req := httptest.NewRequest("GET", "/api/analytics/9", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	_, err := uuid.Parse(seenID)
	assert.NoError(t, err)
	assert.Equal(t, seenID, w.Header().Get(HeaderXRequestID))
	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), `"bytes":7`)
	assert.Contains(t, buf.String(), seenID)
}

func TestRequestLogger_ReusesIncomingID(t *testing.T) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})

	incoming := uuid.New().String()
	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(HeaderXRequestID, incoming)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(HeaderXRequestID))

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(HeaderXRequestID, "not-a-uuid")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(HeaderXRequestID))
}
