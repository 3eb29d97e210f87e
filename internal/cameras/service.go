package cameras

import (
	"context"
	stdErrors "errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/pkg/db/models"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/qr"
	"github.com/plotvista/plotvista-backend/pkg/retry"
)

// CameraDTO is the transport shape for a site camera.
type CameraDTO struct {
	ID        uuid.UUID `json:"id"`
	PlotID    uuid.UUID `json:"plot_id"`
	Label     string    `json:"label"`
	StreamURL string    `json:"stream_url"`
	QRCode    string    `json:"qr_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCameraDTO carries a camera registration.
type CreateCameraDTO struct {
	PlotID    string `json:"plot_id" validate:"required"`
	Label     string `json:"label" validate:"required"`
	StreamURL string `json:"stream_url" validate:"required"`
}

// UpdateCameraDTO carries a partial camera update. A new stream URL
// regenerates the scan code.
type UpdateCameraDTO struct {
	Label     *string `json:"label,omitempty"`
	StreamURL *string `json:"stream_url,omitempty"`
}

func fromModel(camera *models.Camera) *CameraDTO {
	if camera == nil {
		return nil
	}
	return &CameraDTO{
		ID:        camera.ID,
		PlotID:    camera.PlotID,
		Label:     camera.Label,
		StreamURL: camera.StreamURL,
		QRCode:    camera.QRCode,
		CreatedAt: camera.CreatedAt,
		UpdatedAt: camera.UpdatedAt,
	}
}

type plotReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plot, error)
}

// Service owns camera CRUD. All operations are admin-only and enforced at the
// router, the service validates payloads and owns QR generation.
type Service interface {
	Create(ctx context.Context, input CreateCameraDTO) (*CameraDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCameraDTO) (*CameraDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*CameraDTO, error)
	List(ctx context.Context, plotID *uuid.UUID) ([]CameraDTO, error)
}

type service struct {
	repo    Repository
	plots   plotReader
	encoder qr.Encoder
	retry   retry.Policy
	logg    *logger.Logger
}

// NewService validates dependencies and builds the camera service.
func NewService(repository Repository, plots plotReader, encoder qr.Encoder, policy retry.Policy, logg *logger.Logger) (Service, error) {
	switch {
	case repository == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "camera repository is required")
	case plots == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plot reader is required")
	case encoder == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qr encoder is required")
	case logg == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{repo: repository, plots: plots, encoder: encoder, retry: policy, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateCameraDTO) (*CameraDTO, error) {
	input.Label = strings.TrimSpace(input.Label)
	input.StreamURL = strings.TrimSpace(input.StreamURL)

	if input.Label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label is required").
			WithDetails(map[string]string{"field": "label"})
	}
	if err := validateStreamURL(input.StreamURL); err != nil {
		return nil, err
	}
	plotID, err := uuid.Parse(strings.TrimSpace(input.PlotID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plot id is invalid").
			WithDetails(map[string]string{"field": "plot_id"})
	}

	err = s.retry.Do(ctx, "find plot", func(ctx context.Context) error {
		_, opErr := s.plots.FindByID(ctx, plotID)
		return opErr
	})
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plot not found")
		}
		return nil, s.storeError(err, "load plot")
	}

	code, err := s.encoder.Encode(input.StreamURL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode stream qr")
	}

	camera := &models.Camera{
		ID:        uuid.New(),
		PlotID:    plotID,
		Label:     input.Label,
		StreamURL: input.StreamURL,
		QRCode:    code,
	}
	err = s.retry.Do(ctx, "create camera", func(ctx context.Context) error {
		return s.repo.Create(ctx, camera)
	})
	if err != nil {
		return nil, s.storeError(err, "create camera")
	}

	s.logg.Info(
		s.logg.WithFields(ctx, map[string]any{"camera_id": camera.ID.String(), "plot_id": plotID.String()}),
		"camera registered",
	)
	return fromModel(camera), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCameraDTO) (*CameraDTO, error) {
	camera, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Label != nil {
		label := strings.TrimSpace(*input.Label)
		if label == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "label cannot be empty").
				WithDetails(map[string]string{"field": "label"})
		}
		camera.Label = label
	}
	if input.StreamURL != nil {
		streamURL := strings.TrimSpace(*input.StreamURL)
		if err := validateStreamURL(streamURL); err != nil {
			return nil, err
		}
		code, err := s.encoder.Encode(streamURL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode stream qr")
		}
		camera.StreamURL = streamURL
		camera.QRCode = code
	}

	err = s.retry.Do(ctx, "update camera", func(ctx context.Context) error {
		return s.repo.Update(ctx, camera)
	})
	if err != nil {
		return nil, s.storeError(err, "update camera")
	}
	return fromModel(camera), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.retry.Do(ctx, "delete camera", func(ctx context.Context) error {
		var opErr error
		deleted, opErr = s.repo.Delete(ctx, id)
		return opErr
	})
	if err != nil {
		return s.storeError(err, "delete camera")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "camera not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CameraDTO, error) {
	camera, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromModel(camera), nil
}

func (s *service) List(ctx context.Context, plotID *uuid.UUID) ([]CameraDTO, error) {
	var rows []models.Camera
	err := s.retry.Do(ctx, "list cameras", func(ctx context.Context) error {
		var opErr error
		rows, opErr = s.repo.List(ctx, plotID)
		return opErr
	})
	if err != nil {
		return nil, s.storeError(err, "list cameras")
	}

	out := make([]CameraDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Camera, error) {
	var camera *models.Camera
	err := s.retry.Do(ctx, "find camera", func(ctx context.Context) error {
		var opErr error
		camera, opErr = s.repo.FindByID(ctx, id)
		return opErr
	})
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "camera not found")
		}
		return nil, s.storeError(err, "load camera")
	}
	return camera, nil
}

func (s *service) storeError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to "+action)
}

func validateStreamURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "stream_url must be an absolute URL").
			WithDetails(map[string]string{"field": "stream_url"})
	}
	switch parsed.Scheme {
	case "http", "https", "rtsp":
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "stream_url scheme must be http, https or rtsp").
		WithDetails(map[string]string{"field": "stream_url"})
}
