package fxrates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetchDecodesAverage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fuente":"oficial","nombre":"Oficial","compra":null,"venta":null,"promedio":36.58,"fechaActualizacion":"2024-03-01T12:00:00.000Z"}`))
	}))
	t.Cleanup(srv.Close)

	rate, err := NewClient(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "36.58", rate.Value.String())
	assert.Equal(t, SourceBCV, rate.Source)
	assert.Equal(t, 2024, rate.UpdatedAt.Year())
	assert.False(t, rate.IsFallback())
}

func TestClientFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "upstream error", status: http.StatusBadGateway, body: `bad gateway`},
		{name: "malformed body", status: http.StatusOK, body: `{"promedio":`},
		{name: "zero rate", status: http.StatusOK, body: `{"promedio":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Fetch(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestClientFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"promedio":36}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, 20*time.Millisecond).Fetch(context.Background())
	assert.Error(t, err)
}
