package broker_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulscherrerinstitute/bsread-go/broker"
)

func TestRequestStreamDefaultsAndParsesEndpoint(t *testing.T) {
	var gotBody map[string]any
	var gotMethod, gotPath, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stream":"tcp://dispatcher:9999"}`))
	}))
	defer srv.Close()

	c := broker.New(srv.URL, nil)

	stream, err := c.RequestStream(
		t.Context(),
		[]broker.ChannelDescription{broker.ChannelOf("chan-a"), broker.NewChannelDescription("chan-b", 2, 1)},
		false,
	)
	require.NoError(t, err)
	require.NotNil(t, stream)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/stream", gotPath)
	assert.Equal(t, "application/json", gotContentType)

	assert.Equal(t, "pub_sub", gotBody["stream_type"])
	assert.Equal(t, false, gotBody["verify"])

	validation, ok := gotBody["channel_validation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "keep-as-is", validation["inconsistency"])

	_, hasCompression := gotBody["compression"]
	assert.False(t, hasCompression, "compression omitted unless explicitly disabled")

	channels, ok := gotBody["channels"].([]any)
	require.True(t, ok)
	require.Len(t, channels, 2)

	first, ok := channels[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "chan-a", first["name"])
	assert.NotContains(t, first, "modulo")

	second, ok := channels[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "chan-b", second["name"])
	assert.EqualValues(t, 2, second["modulo"])
	assert.EqualValues(t, 1, second["offset"])

	assert.Equal(t, "tcp://dispatcher:9999", stream.Endpoint())
}

func TestRequestStreamVerifyAdjustsInconsistencyAndCompression(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stream":"tcp://dispatcher:9999"}`))
	}))
	defer srv.Close()

	c := broker.New(srv.URL, nil)

	_, err := c.RequestStream(
		t.Context(),
		[]broker.ChannelDescription{broker.ChannelOf("chan-a")},
		true,
		broker.WithCompressionDisabled(),
		broker.WithStreamType("push_pull"),
	)
	require.NoError(t, err)

	assert.Equal(t, "push_pull", gotBody["stream_type"])
	assert.Equal(t, true, gotBody["verify"])
	assert.Equal(t, "none", gotBody["compression"])

	validation, ok := gotBody["channel_validation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "adjust-individual", validation["inconsistency"])
}

func TestRequestStreamPropagatesNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	c := broker.New(srv.URL, nil, broker.WithRetryMax(0))
	_, err := c.RequestStream(t.Context(), []broker.ChannelDescription{broker.ChannelOf("chan-a")}, false)
	assert.Error(t, err)
}

func TestCloseIssuesDeleteWithEndpointAsBody(t *testing.T) {
	var deleteCalls atomic.Int64
	var gotMethod, gotPath, gotContentType, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"stream":"tcp://dispatcher:9999"}`))
		case http.MethodDelete:
			deleteCalls.Add(1)
			gotMethod = r.Method
			gotPath = r.URL.Path
			gotContentType = r.Header.Get("Content-Type")

			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			gotBody = string(raw)

			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := broker.New(srv.URL, nil)
	stream, err := c.RequestStream(t.Context(), []broker.ChannelDescription{broker.ChannelOf("chan-a")}, false)
	require.NoError(t, err)

	require.NoError(t, stream.Close())

	assert.Equal(t, int64(1), deleteCalls.Load())
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/stream", gotPath)
	assert.Equal(t, "text/plain", gotContentType)
	assert.Equal(t, "tcp://dispatcher:9999", gotBody)
}

func TestCloseSwallowsDeleteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"stream":"tcp://dispatcher:9999"}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := broker.New(srv.URL, nil, broker.WithRetryMax(0))
	stream, err := c.RequestStream(t.Context(), []broker.ChannelDescription{broker.ChannelOf("chan-a")}, false)
	require.NoError(t, err)

	assert.NoError(t, stream.Close(), "delete failures are logged only, never returned")
}
