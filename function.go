// Package cloudfunctions exposes the article API as Cloud Functions.
package cloudfunctions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/rs/zerolog/log"

	"github.com/pep299/article-feed-api/internal/application"
	"github.com/pep299/article-feed-api/internal/config"
	"github.com/pep299/article-feed-api/internal/logger"
	"github.com/pep299/article-feed-api/internal/response"
)

func init() {
	functions.HTTP("ArticlesAPI", ArticlesAPI)
	functions.HTTP("ScheduledJob", ScheduledJob)
}

var (
	appOnce    sync.Once
	app        *application.Application
	appHandler http.Handler
	appErr     error
)

// getApp builds the application and its HTTP handler once per instance.
func getApp() (*application.Application, error) {
	appOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			appErr = fmt.Errorf("loading config: %w", err)
			return
		}
		logger.Init(cfg.LogLevel, cfg.LogFormat)

		app, appErr = application.New(context.Background(), cfg)
		if appErr == nil {
			appHandler = app.Handler()
		}
	})
	return app, appErr
}

// ArticlesAPI serves the article API
func ArticlesAPI(w http.ResponseWriter, r *http.Request) {
	if _, err := getApp(); err != nil {
		log.Error().Err(err).Msg("Application unavailable")
		response.WriteInternalError(w)
		return
	}
	appHandler.ServeHTTP(w, r)
}

// CloudEvent represents a Cloud Scheduler event envelope
type CloudEvent struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype,omitempty"`
	Data            json.RawMessage `json:"data"`
}

// CloudEventData selects the job to run
type CloudEventData struct {
	Job string `json:"job"` // "export" or "cache_warm"
}

// ScheduledJob decodes a CloudEvent from the request body and runs its job
func ScheduledJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid event.")
		return
	}

	var event CloudEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid event.")
		return
	}

	if err := RunScheduledJob(r.Context(), event); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("Scheduled job failed")
		response.WriteInternalError(w)
		return
	}
	response.WriteSuccess(w, nil, "Job completed.")
}

// RunScheduledJob runs the job named in the event data
func RunScheduledJob(ctx context.Context, event CloudEvent) error {
	var data CloudEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("failed to parse event data: %w", err)
	}

	a, err := getApp()
	if err != nil {
		return err
	}

	log.Info().Str("event_id", event.ID).Str("job", data.Job).Msg("Running scheduled job")

	switch data.Job {
	case "export":
		return a.RunExport(ctx)
	case "cache_warm":
		return a.Articles.Warm(ctx)
	default:
		return fmt.Errorf("unknown job: %q", data.Job)
	}
}
