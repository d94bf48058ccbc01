package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/videoloop/internal/api/models"
	"github.com/smazurov/videoloop/internal/events"
	"github.com/smazurov/videoloop/internal/pipeline"
	"github.com/smazurov/videoloop/internal/transform"
	"github.com/smazurov/videoloop/internal/version"
	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				Modified:  info.Modified,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerPipelineRoutes()
	s.registerDeviceRoutes()
	s.registerEventRoutes()
}

func (s *Server) registerPipelineRoutes() {
	if s.options.Pipeline == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Pipeline status",
		Description: "Current state, negotiated formats and frame counters of the pipeline",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: statusToModel(s.options.Pipeline.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-transform",
		Method:      http.MethodGet,
		Path:        "/api/transform",
		Summary:     "Active transform",
		Description: "Get the active frame transform and the selectable ones",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.TransformResponse, error) {
		return s.transformResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-transform",
		Method:      http.MethodPut,
		Path:        "/api/transform",
		Summary:     "Select transform",
		Description: "Replace the frame transform. The change applies from the next frame.",
		Tags:        []string{"pipeline"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 409},
	}, func(_ context.Context, input *models.TransformRequest) (*models.TransformResponse, error) {
		if err := s.options.Pipeline.SetTransform(input.Body.Name); err != nil {
			if errors.Is(err, transform.ErrUnknown) {
				return nil, huma.Error400BadRequest("Unknown transform", err)
			}
			if errors.Is(err, transform.ErrNeedsStride) {
				return nil, huma.Error409Conflict("Transform not applicable to the current format", err)
			}
			return nil, huma.Error500InternalServerError("Failed to set transform", err)
		}
		return s.transformResponse(), nil
	})
}

func (s *Server) transformResponse() *models.TransformResponse {
	return &models.TransformResponse{
		Body: models.TransformData{
			Active:    s.options.Pipeline.Transform(),
			Available: transform.Names(),
		},
	}
}

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List devices",
		Description: "List V4L2 capture and output devices present on the system",
		Tags:        []string{"devices"},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.DevicesResponse, error) {
		var found []v4l2.DeviceInfo
		if s.options.ListDevices != nil {
			var err error
			found, err = s.options.ListDevices()
			if err != nil {
				return nil, huma.Error500InternalServerError("Failed to list devices", err)
			}
		}

		list := make([]models.DeviceInfo, 0, len(found))
		for _, d := range found {
			list = append(list, models.DeviceInfo{
				DevicePath: d.DevicePath,
				DeviceName: d.DeviceName,
				DeviceID:   d.DeviceID,
				Caps:       d.Caps,
				Capture:    d.CanCapture(),
				Output:     d.CanOutput(),
			})
		}
		return &models.DevicesResponse{
			Body: models.DeviceData{Devices: list, Count: len(list)},
		}, nil
	})
}

// registerEventRoutes streams bus events to SSE clients.
func (s *Server) registerEventRoutes() {
	if s.options.EventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time pipeline state, format, transform and device events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"state-changed":     events.StateChangedEvent{},
		"format-negotiated": events.FormatNegotiatedEvent{},
		"device-changed":    events.DeviceChangedEvent{},
		"transform-changed": events.TransformChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)
		bus := s.options.EventBus
		unsubscribers := []func(){
			events.Forward[events.StateChangedEvent](bus, eventCh),
			events.Forward[events.FormatNegotiatedEvent](bus, eventCh),
			events.Forward[events.DeviceChangedEvent](bus, eventCh),
			events.Forward[events.TransformChangedEvent](bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// A new client first learns the current state.
		if s.options.Pipeline != nil {
			st := s.options.Pipeline.Status()
			if err := send.Data(events.StateChangedEvent{
				State:     string(st.State),
				Error:     st.Error,
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}

func statusToModel(st pipeline.Status) models.StatusData {
	data := models.StatusData{
		State:           string(st.State),
		Error:           st.Error,
		Source:          st.Source,
		Sink:            st.Sink,
		Transform:       st.Transform,
		SourceFormat:    formatToModel(st.SourceFormat),
		SinkFormat:      formatToModel(st.SinkFormat),
		CaptureBuffers:  st.CaptureBuffers,
		OutputBuffers:   st.OutputBuffers,
		FramesForwarded: st.FramesForwarded,
		BytesForwarded:  st.BytesForwarded,
		WarmupDiscards:  st.WarmupDiscards,
		CorruptFrames:   st.CorruptFrames,
		LastSequence:    st.LastSequence,
	}
	if !st.StartedAt.IsZero() {
		t := st.StartedAt
		data.StartedAt = &t
	}
	if !st.SteadySince.IsZero() {
		t := st.SteadySince
		data.SteadySince = &t
	}
	return data
}

func formatToModel(f *v4l2.Format) *models.FormatData {
	if f == nil {
		return nil
	}
	return &models.FormatData{
		Width:        f.Width,
		Height:       f.Height,
		PixelFormat:  v4l2.FormatFourCC(f.PixelFormat),
		BytesPerLine: f.BytesPerLine,
		SizeImage:    f.SizeImage,
	}
}
