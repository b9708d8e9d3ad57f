package validator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_2xxWithEmptyBodyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(2 * time.Second)
	_, outcome, err := c.Call(context.Background(), srv.URL, "resource-1", Request{PoolID: "pool-a", ResourceID: "resource-1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, outcome)
}

func TestCall_2xxWithJSONBodyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	c := NewClient(2 * time.Second)
	resp, outcome, err := c.Call(context.Background(), srv.URL, "resource-1", Request{PoolID: "pool-a", ResourceID: "resource-1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "accepted", resp.Status)
}

func TestCall_5xxIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(2 * time.Second)
	_, outcome, err := c.Call(context.Background(), srv.URL, "resource-1", Request{PoolID: "pool-a", ResourceID: "resource-1"})
	assert.Error(t, err)
	assert.Equal(t, OutcomeTransient, outcome)
}

func TestCall_4xxIsTransientNotTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(2 * time.Second)
	_, outcome, err := c.Call(context.Background(), srv.URL, "resource-1", Request{PoolID: "pool-a", ResourceID: "resource-1"})
	assert.Error(t, err)
	assert.Equal(t, OutcomeTransient, outcome)
}
