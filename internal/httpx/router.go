package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/touchpoints/internal/ingest"
	"github.com/AngelCh415/touchpoints/internal/metrics"
	"github.com/AngelCh415/touchpoints/internal/utils"
)

// Runner triggers a batch run. *ingest.Job implements it; nil disables
// POST /ingest/run.
type Runner interface {
	Run(ctx context.Context) (ingest.RunResult, error)
}

// Ready reports whether journeys are loaded.
type Ready func() bool

func NewRouter(log *slog.Logger, run Runner, svc *metrics.Service, ready Ready) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			http.Error(w, "no journeys loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/ingest/run", func(w http.ResponseWriter, r *http.Request) {
		if run == nil {
			http.Error(w, "ingest disabled", http.StatusNotImplemented)
			return
		}
		// The batch outlives the request; a dropped client must not abort it.
		res, err := run.Run(context.WithoutCancel(r.Context()))
		switch {
		case errors.Is(err, ingest.ErrRunning):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			log.Error("ingest failed", slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, res)
	})

	mux.Get("/journeys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.QueryJourneys(r.URL.Query()))
	})
	mux.Get("/journeys/{accountID}", func(w http.ResponseWriter, r *http.Request) {
		j, ok := svc.Journey(chi.URLParam(r, "accountID"))
		if !ok {
			http.Error(w, "journey not found", http.StatusNotFound)
			return
		}
		writeJSON(w, j)
	})

	mux.Route("/analysis", func(ar chi.Router) {
		ar.Get("/", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, svc.Analyze()) })
		ar.Get("/cohorts", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, svc.Cohorts()) })
		ar.Get("/channels", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, svc.Channels()) })
		ar.Get("/transitions", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, svc.Transitions(r.URL.Query())) })
		ar.Get("/gaps", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, svc.Gaps(r.URL.Query())) })
		ar.Get("/speed", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, svc.Speed()) })
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
