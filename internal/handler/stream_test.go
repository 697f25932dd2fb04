package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claudiator/server-go/internal/service"
	"github.com/claudiator/server-go/internal/sse"
)

func readEvent(t *testing.T, reader *bufio.Reader) (string, service.VersionSnapshot) {
	t.Helper()
	var (
		eventType string
		snap      service.VersionSnapshot
	)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
		case line == "" && eventType != "":
			return eventType, snap
		}
	}
}

func TestStreamHandler(t *testing.T) {
	broker := sse.NewBroker(nil)
	defer broker.Close()
	versions := &mockVersions{snap: service.VersionSnapshot{DataVersion: 5, NotificationVersion: 1}}

	srv := httptest.NewServer(newRouter(NewStreamHandler(broker, versions, time.Hour)))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	eventType, snap := readEvent(t, reader)
	assert.Equal(t, "versions", eventType)
	assert.Equal(t, versions.snap, snap)

	require.Eventually(t, func() bool { return broker.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	broker.PublishVersions(service.VersionSnapshot{DataVersion: 6, NotificationVersion: 1})

	_, snap = readEvent(t, reader)
	assert.EqualValues(t, 6, snap.DataVersion)

	cancel()
	assert.Eventually(t, func() bool { return broker.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStreamHandler_PrimesWithRelayedCounters(t *testing.T) {
	broker := sse.NewBroker(nil)
	defer broker.Close()
	broker.PublishVersions(service.VersionSnapshot{DataVersion: 9, NotificationVersion: 0})
	versions := &mockVersions{snap: service.VersionSnapshot{DataVersion: 5, NotificationVersion: 2}}

	srv := httptest.NewServer(newRouter(NewStreamHandler(broker, versions, time.Hour)))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	_, snap := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, service.VersionSnapshot{DataVersion: 9, NotificationVersion: 2}, snap)
}
