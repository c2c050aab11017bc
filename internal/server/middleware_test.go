package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger(t *testing.T) {
	tc := []struct {
		name   string
		status int
		level  string
	}{
		{name: "ok", status: http.StatusOK, level: "INFO"},
		{name: "client error", status: http.StatusNotFound, level: "WARN"},
		{name: "server error", status: http.StatusBadGateway, level: "ERRO"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

			router := NewChiRouter()
			router.Use(DefaultMiddleware(logger, time.Second)...)
			router.Handle(http.MethodGet, "/probe", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/probe", nil))

			assert.Equal(t, tt.status, rr.Code)
			out := buf.String()
			assert.Contains(t, out, tt.level)
			assert.Contains(t, out, "path=/probe")
			assert.Contains(t, out, "request_id=")
		})
	}
}

func TestRecovererReturns500(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)

	router := NewChiRouter()
	router.Use(DefaultMiddleware(logger, time.Second)...)
	router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
