package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/pose/posetest"
	"github.com/ayusman/formcheck/internal/replay"
	"github.com/ayusman/formcheck/internal/store"
)

func TestAPI_SetHistory(t *testing.T) {
	ts := newTestServer(t, true, "")

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, s := range []struct {
		movement string
		reps     int
	}{
		{"squat", 10}, {"squat", 12}, {"push-up", 20},
	} {
		require.NoError(t, ts.store.Sets().Create(&store.WorkoutSet{
			Movement:   s.movement,
			Reps:       s.reps,
			Duration:   time.Minute,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
		}))
	}

	var list struct {
		Sets []struct {
			ID       string  `json:"id"`
			Movement string  `json:"movement"`
			Reps     int     `json:"reps"`
			Seconds  float64 `json:"seconds"`
		} `json:"sets"`
	}
	rec := ts.do(t, http.MethodGet, "/api/sets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	require.Len(t, list.Sets, 3)
	// Newest first.
	assert.Equal(t, "push-up", list.Sets[0].Movement)
	assert.Equal(t, 60.0, list.Sets[0].Seconds)

	rec = ts.do(t, http.MethodGet, "/api/sets?movement=Squat&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	require.Len(t, list.Sets, 1)
	assert.Equal(t, 12, list.Sets[0].Reps)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/sets?movement=deadlift", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/sets?since=yesterday", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/sets?limit=-1", "").Code)

	var stats struct {
		Movements []struct {
			Movement string `json:"movement"`
			Sets     int    `json:"sets"`
			Reps     int    `json:"reps"`
			BestSet  int    `json:"best_set"`
		} `json:"movements"`
		Sets int `json:"sets"`
		Reps int `json:"reps"`
	}
	rec = ts.do(t, http.MethodGet, "/api/sets/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stats)
	assert.Equal(t, 3, stats.Sets)
	assert.Equal(t, 42, stats.Reps)
	require.Len(t, stats.Movements, 2)

	id := list.Sets[0].ID
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/sets/"+id, "").Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/sets/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/sets/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/sets/"+id, "").Code)
}

func writeTestPlugin(t *testing.T, dir, name string, actions ...string) {
	t.Helper()
	pluginDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(pluginDir, 0755))
	manifest, err := json.Marshal(map[string]any{
		"name":       name,
		"version":    "1.0.0",
		"executable": "run.sh",
		"actions":    actions,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifest, 0644))
}

func TestAPI_CueWorkflow(t *testing.T) {
	ts := newTestServer(t, true, "")
	writeTestPlugin(t, ts.app.PluginManager().PluginDir(), "announcer", "say", "beep")
	require.NoError(t, ts.app.DiscoverPlugins())

	rec := ts.do(t, http.MethodGet, "/api/plugins", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"announcer"`)

	// 1. Create a cue
	rec = ts.do(t, http.MethodPost, "/api/cues",
		`{"event":"rep","movement":"Push-up","plugin":"announcer","action":"say","config":{"text":"{count}"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID       string          `json:"id"`
		Movement string          `json:"movement"`
		Enabled  bool            `json:"enabled"`
		Config   json.RawMessage `json:"config"`
	}
	decode(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "push-up", created.Movement)
	assert.True(t, created.Enabled)
	assert.JSONEq(t, `{"text":"{count}"}`, string(created.Config))

	// 2. Invalid cues are rejected
	for _, body := range []string{
		`{"event":"jump","plugin":"announcer","action":"say"}`,
		`{"event":"rep","plugin":"missing","action":"say"}`,
		`{"event":"rep","plugin":"announcer","action":"dance"}`,
		`{"event":"rep","movement":"deadlift","plugin":"announcer","action":"say"}`,
		`{"event":"rep","action":"say"}`,
		`not json`,
	} {
		assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/cues", body).Code, body)
	}

	// 3. Update it
	rec = ts.do(t, http.MethodPut, "/api/cues/"+created.ID, `{"event":"set_finished","movement":"","enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cue, err := ts.store.Cues().GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, store.EventSetFinished, cue.Event)
	assert.Equal(t, "", cue.Movement)
	assert.False(t, cue.Enabled)

	// 4. List and delete
	rec = ts.do(t, http.MethodGet, "/api/cues", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/cues/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/cues/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPut, "/api/cues/"+created.ID, `{}`).Code)
}

func recordingBody(t *testing.T) string {
	t.Helper()
	rec := &replay.Recording{Frames: squatSet()}
	raw, err := rec.RawFrames()
	require.NoError(t, err)

	frames := make([]string, len(raw))
	for i, f := range raw {
		frames[i] = string(f)
	}
	return fmt.Sprintf(`{"name":"morning squats","movement":"squat","fps":10,"frames":[%s]}`, strings.Join(frames, ","))
}

// squatSet is two squat reps with a lost pose in between.
func squatSet() []*pose.Frame {
	return []*pose.Frame{
		posetest.Standing(),
		posetest.Squat(90, 85),
		posetest.Standing(),
		nil,
		posetest.Squat(95, 80),
	}
}

func TestAPI_RecordingWorkflow(t *testing.T) {
	ts := newTestServer(t, true, "")

	rec := ts.do(t, http.MethodPost, "/api/recordings", recordingBody(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID         string `json:"id"`
		Movement   string `json:"movement"`
		FrameCount int    `json:"frame_count"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "squat", created.Movement)
	assert.Equal(t, 5, created.FrameCount)

	rec = ts.do(t, http.MethodGet, "/api/recordings/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var full struct {
		Frames []json.RawMessage `json:"frames"`
	}
	decode(t, rec, &full)
	require.Len(t, full.Frames, 5)
	assert.Equal(t, "null", string(full.Frames[3]))

	var result replay.Result
	rec = ts.do(t, http.MethodPost, "/api/recordings/"+created.ID+"/replay", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &result)
	assert.Equal(t, 2, result.Reps)
	assert.Equal(t, []int{1, 4}, result.RepFrames)
	assert.Equal(t, 1, result.Indeterminate)

	// Rule changes apply to the next replay.
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/api/movements/squat", `{"tolerance": 2}`).Code)
	rec = ts.do(t, http.MethodPost, "/api/recordings/"+created.ID+"/replay", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.Equal(t, 1, result.Reps)

	// Invalid recordings
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/recordings",
		`{"name":"x","movement":"squat","frames":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/recordings",
		`{"name":"x","movement":"plank","frames":[null]}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/recordings",
		`{"movement":"squat","frames":[null]}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/recordings/"+created.ID+"/replay?movement=plank", "").Code)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/recordings/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/recordings/"+created.ID+"/replay", "").Code)
}
