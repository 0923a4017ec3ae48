package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemiqofficial/steel-iq-sub000/internal/database"
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
	"github.com/systemiqofficial/steel-iq-sub000/internal/events"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/results"
)

func newTestServer(t *testing.T) (*Server, *results.Repository, *events.Recorder) {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    "file:server_test_" + t.Name() + "?mode=memory&cache=shared",
		Profile: database.ProfileResults,
		Name:    "results",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	repo := results.NewRepository(db, zerolog.Nop())
	recorder := events.NewRecorder(16)

	srv := New(Config{
		Log:      zerolog.Nop(),
		Results:  repo,
		Recorder: recorder,
		Port:     0,
		DevMode:  true,
	})
	return srv, repo, recorder
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleResultsYears(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	require.NoError(t, repo.SaveYear(results.YearSummary{Year: 2030}, nil))
	require.NoError(t, repo.SaveYear(results.YearSummary{Year: 2031}, nil))

	rec := get(t, srv, "/api/results/years")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Years []int `json:"years"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []int{2030, 2031}, body.Years)
}

func TestHandleResultsYear(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	require.NoError(t, repo.SaveYear(results.YearSummary{
		Year:                   2030,
		ProductionByTechnology: map[string]float64{"dri-eaf": 12_000_000},
		CapacityAddedSteel:     5_000_000,
	}, nil))

	rec := get(t, srv, "/api/results/years/2030")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary results.YearSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2030, summary.Year)
	assert.InDelta(t, 12_000_000, summary.ProductionByTechnology["dri-eaf"], 1e-9)
}

func TestHandleResultsYearNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/results/years/2099")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleResultsYearBadParam(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/results/years/not-a-year")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleResultsCommands(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	commands := []domain.Command{
		&domain.CloseCommand{CommandID: "cmd-1", PlantID: "plant-1", FurnaceGroupID: "fg-1"},
	}
	require.NoError(t, repo.SaveYear(results.YearSummary{Year: 2030}, commands))

	rec := get(t, srv, "/api/results/years/2030/commands")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Year     int                     `json:"year"`
		Commands []results.StoredCommand `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2030, body.Year)
	require.Len(t, body.Commands, 1)
	assert.Equal(t, "cmd-1", body.Commands[0].ID)
	assert.Equal(t, string(domain.CommandClose), body.Commands[0].Type)
}

func TestHandleSimulationEvents(t *testing.T) {
	srv, _, recorder := newTestServer(t)
	recorder.Record(&events.YearStartedData{Year: 2030})
	recorder.Record(&events.YearCompletedData{Year: 2030, Commands: 3})

	rec := get(t, srv, "/api/simulation/events?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var recent []events.EventWithData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recent))
	require.Len(t, recent, 1)
	assert.Equal(t, events.YearCompleted, recent[0].Type)
}

func TestHandleSimulationStatusUnconfigured(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/simulation/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
