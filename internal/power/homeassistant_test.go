package power

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient(Config{URL: "http://hass"}, nil, nil)
	assert.False(t, c.Configured())

	_, err := c.State(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.Toggle(context.Background()), ErrNotConfigured)
}

func TestClient_State(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/states/switch.printer", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"entity_id":"switch.printer","state":"on"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL + "/api/", Token: "secret", EntityID: "switch.printer"}, srv.Client(), nil)
	state, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "on", state)
}

func TestClient_Toggle(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/services/switch/toggle", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Token: "t", EntityID: "switch.ql"}, srv.Client(), nil)
	toggled := 0
	c.OnToggle(func() { toggled++ })

	require.NoError(t, c.Toggle(context.Background()))
	assert.Equal(t, map[string]string{"entity_id": "switch.ql"}, got)
	assert.Equal(t, 1, toggled)
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Token: "bad", EntityID: "switch.ql"}, srv.Client(), nil)
	toggled := false
	c.OnToggle(func() { toggled = true })

	_, err := c.State(context.Background())
	assert.ErrorContains(t, err, "401")
	assert.Error(t, c.Toggle(context.Background()))
	assert.False(t, toggled)
}
