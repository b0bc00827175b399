package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-bciselect/config"
	"github.com/swdee/go-bciselect/selection"
	"gocv.io/x/gocv"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFrame(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 255, 0, 0), height, width,
		gocv.MatTypeCV8UC3)
}

func TestSnapshotBeforeFrame(t *testing.T) {
	s := NewServer(config.StreamConfig{}, nil, discardLogger())
	defer s.Close()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot.jpg", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshot(t *testing.T) {

	tests := []struct {
		name      string
		cfg       config.StreamConfig
		expWidth  int
		expHeight int
	}{
		{"full size", config.StreamConfig{JPEGQuality: 90}, 640, 480},
		{"scaled", config.StreamConfig{MaxWidth: 320}, 320, 240},
		{"not enlarged", config.StreamConfig{MaxWidth: 1280, MaxHeight: 720}, 640, 480},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewServer(tc.cfg, nil, discardLogger())
			defer s.Close()

			img := testFrame(640, 480)
			defer img.Close()

			require.NoError(t, s.Publish(img))
			assert.Equal(t, uint64(1), s.Frames())

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot.jpg", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

			decoded, err := gocv.IMDecode(rec.Body.Bytes(), gocv.IMReadColor)
			require.NoError(t, err)
			defer decoded.Close()

			assert.Equal(t, tc.expWidth, decoded.Cols())
			assert.Equal(t, tc.expHeight, decoded.Rows())
		})
	}
}

func TestPublishResizedSource(t *testing.T) {
	s := NewServer(config.StreamConfig{MaxWidth: 320}, nil, discardLogger())
	defer s.Close()

	small := testFrame(640, 480)
	defer small.Close()
	large := testFrame(1280, 960)
	defer large.Close()

	require.NoError(t, s.Publish(small))
	require.NoError(t, s.Publish(large))

	data, _ := s.current()
	decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
	require.NoError(t, err)
	defer decoded.Close()

	assert.Equal(t, 320, decoded.Cols())
	assert.Equal(t, 240, decoded.Rows())
}

func TestPublishEmpty(t *testing.T) {
	s := NewServer(config.StreamConfig{}, nil, discardLogger())
	defer s.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	assert.Error(t, s.Publish(empty))
	assert.Zero(t, s.Frames())
}

func TestStatus(t *testing.T) {
	s := NewServer(config.StreamConfig{}, func() interface{} {
		return map[string]int{"index": 2, "count": 3}
	}, discardLogger())
	defer s.Close()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, map[string]int{"index": 2, "count": 3}, got)

	// no status func
	s2 := NewServer(config.StreamConfig{}, nil, discardLogger())
	defer s2.Close()

	rec = httptest.NewRecorder()
	s2.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestStream(t *testing.T) {
	s := NewServer(config.StreamConfig{}, nil, discardLogger())
	defer s.Close()

	img := testFrame(128, 96)
	defer img.Close()
	require.NoError(t, s.Publish(img))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	readPart := func() {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "--frame\r\n", line)

		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(line, "Content-Type: image/jpeg"))
	}

	// current frame is sent on connect
	readPart()

	require.Eventually(t, func() bool { return s.Clients() == 1 },
		time.Second, 5*time.Millisecond)

	// skip the rest of the first part then wait for the next frame
	data, _ := s.current()
	_, err = io.ReadFull(reader, make([]byte, 2+len(data)+2))
	require.NoError(t, err)

	require.NoError(t, s.Publish(img))
	readPart()

	cancel()

	require.Eventually(t, func() bool { return s.Clients() == 0 },
		time.Second, 5*time.Millisecond)
}

func TestEvents(t *testing.T) {
	b := selection.NewBroadcaster(4)
	defer b.Close()

	s := NewServer(config.StreamConfig{}, nil, discardLogger())
	defer s.Close()
	s.SetEvents(b)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping\n", line)

	// the subscription exists once the ping has been sent
	b.Emit(7)

	var lines []string
	for len(lines) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == "\n" && len(lines) == 0 {
			continue
		}
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"event: confirm\n", "data: {\"planning_id\":7}\n", "\n"}, lines)
}

func TestEventsDisabled(t *testing.T) {
	s := NewServer(config.StreamConfig{}, nil, discardLogger())
	defer s.Close()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConcurrentPublishScaled(t *testing.T) {
	s := NewServer(config.StreamConfig{MaxWidth: 320}, nil, discardLogger())
	defer s.Close()

	// two source sizes force the scaler to be rebuilt between publishes
	small := testFrame(640, 480)
	defer small.Close()
	large := testFrame(800, 600)
	defer large.Close()

	const workers, perWorker = 4, 25

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		img := small
		if i%2 == 1 {
			img = large
		}

		wg.Add(1)
		go func(img gocv.Mat) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				assert.NoError(t, s.Publish(img))
			}
		}(img)
	}

	wg.Wait()

	assert.Equal(t, uint64(workers*perWorker), s.Frames())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot.jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	decoded, err := gocv.IMDecode(rec.Body.Bytes(), gocv.IMReadColor)
	require.NoError(t, err)
	defer decoded.Close()

	assert.Equal(t, 320, decoded.Cols())
	assert.Equal(t, 240, decoded.Rows())
}
