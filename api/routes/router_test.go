package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	camerasvc "github.com/plotvista/plotvista-backend/internal/cameras"
	leavesvc "github.com/plotvista/plotvista-backend/internal/leaverequests"
	notifsvc "github.com/plotvista/plotvista-backend/internal/notifications"
	plotsvc "github.com/plotvista/plotvista-backend/internal/plots"
	projectsvc "github.com/plotvista/plotvista-backend/internal/projects"
	usersvc "github.com/plotvista/plotvista-backend/internal/users"
	visitsvc "github.com/plotvista/plotvista-backend/internal/visitrequests"
	"github.com/plotvista/plotvista-backend/pkg/config"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

// stubUserService resolves subject headers of the form "subject-<role>".
type stubUserService struct{}

func (stubUserService) ResolveBySubjectID(ctx context.Context, subjectID string) (*usersvc.UserDTO, error) {
	var role enums.Role
	switch subjectID {
	case "subject-admin":
		role = enums.RoleAdmin
	case "subject-manager":
		role = enums.RoleManager
	case "subject-client":
		role = enums.RoleClient
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown subject")
	}
	return &usersvc.UserDTO{ID: uuid.New(), Email: subjectID + "@plotvista.in", Role: role}, nil
}

func (stubUserService) SyncUpsert(ctx context.Context, event usersvc.IdentityEventDTO) (*usersvc.UserDTO, error) {
	panic("unimplemented")
}

func (stubUserService) SyncDelete(ctx context.Context, subjectID string) error {
	panic("unimplemented")
}

func (stubUserService) GetByID(ctx context.Context, id uuid.UUID) (*usersvc.UserDTO, error) {
	panic("unimplemented")
}

func (stubUserService) ListManagers(ctx context.Context) ([]usersvc.ManagerDTO, error) {
	return []usersvc.ManagerDTO{}, nil
}

type stubProjectService struct{}

func (stubProjectService) Create(ctx context.Context, input projectsvc.CreateProjectDTO) (*projectsvc.ProjectDTO, error) {
	panic("unimplemented")
}

func (stubProjectService) Get(ctx context.Context, id uuid.UUID) (*projectsvc.ProjectDTO, error) {
	panic("unimplemented")
}

func (stubProjectService) List(ctx context.Context) ([]projectsvc.ProjectDTO, error) {
	return []projectsvc.ProjectDTO{}, nil
}

type stubPlotService struct{}

func (stubPlotService) Create(ctx context.Context, input plotsvc.CreatePlotDTO) (*plotsvc.PlotDTO, error) {
	panic("unimplemented")
}

func (stubPlotService) Update(ctx context.Context, id uuid.UUID, input plotsvc.UpdatePlotDTO) (*plotsvc.PlotDTO, error) {
	panic("unimplemented")
}

func (stubPlotService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubPlotService) Get(ctx context.Context, id uuid.UUID) (*plotsvc.PlotDTO, error) {
	panic("unimplemented")
}

func (stubPlotService) List(ctx context.Context, status string, projectID *uuid.UUID) ([]plotsvc.PlotDTO, error) {
	return []plotsvc.PlotDTO{}, nil
}

type stubVisitService struct {
	listFn func(ctx context.Context, params visitsvc.ListParams) ([]visitsvc.VisitRequestDTO, error)
}

func (stubVisitService) Submit(ctx context.Context, input visitsvc.SubmitDTO) (*visitsvc.VisitRequestDTO, error) {
	return &visitsvc.VisitRequestDTO{ID: uuid.New()}, nil
}

func (stubVisitService) Assign(ctx context.Context, requestID, managerID uuid.UUID) (*visitsvc.VisitRequestDTO, error) {
	return &visitsvc.VisitRequestDTO{ID: requestID}, nil
}

func (stubVisitService) Accept(ctx context.Context, requestID uuid.UUID, actor visitsvc.Actor) (*visitsvc.VisitRequestDTO, error) {
	panic("unimplemented")
}

func (stubVisitService) Reject(ctx context.Context, requestID uuid.UUID, actor visitsvc.Actor, reason string) (*visitsvc.VisitRequestDTO, error) {
	panic("unimplemented")
}

func (stubVisitService) Get(ctx context.Context, requestID uuid.UUID, viewer visitsvc.Actor, viewerEmail string) (*visitsvc.VisitRequestDTO, error) {
	panic("unimplemented")
}

func (s stubVisitService) List(ctx context.Context, params visitsvc.ListParams) ([]visitsvc.VisitRequestDTO, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return []visitsvc.VisitRequestDTO{}, nil
}

type stubLeaveService struct{}

func (stubLeaveService) Submit(ctx context.Context, actor leavesvc.Actor, input leavesvc.SubmitDTO) (*leavesvc.LeaveRequestDTO, error) {
	panic("unimplemented")
}

func (stubLeaveService) Approve(ctx context.Context, requestID uuid.UUID, actor leavesvc.Actor) (*leavesvc.LeaveRequestDTO, error) {
	panic("unimplemented")
}

func (stubLeaveService) Reject(ctx context.Context, requestID uuid.UUID, actor leavesvc.Actor, reason string) (*leavesvc.LeaveRequestDTO, error) {
	panic("unimplemented")
}

func (stubLeaveService) Get(ctx context.Context, requestID uuid.UUID, viewer leavesvc.Actor) (*leavesvc.LeaveRequestDTO, error) {
	panic("unimplemented")
}

func (stubLeaveService) List(ctx context.Context, params leavesvc.ListParams) ([]leavesvc.LeaveRequestDTO, error) {
	return []leavesvc.LeaveRequestDTO{}, nil
}

type stubCameraService struct{}

func (stubCameraService) Create(ctx context.Context, input camerasvc.CreateCameraDTO) (*camerasvc.CameraDTO, error) {
	panic("unimplemented")
}

func (stubCameraService) Update(ctx context.Context, id uuid.UUID, input camerasvc.UpdateCameraDTO) (*camerasvc.CameraDTO, error) {
	panic("unimplemented")
}

func (stubCameraService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubCameraService) Get(ctx context.Context, id uuid.UUID) (*camerasvc.CameraDTO, error) {
	panic("unimplemented")
}

func (stubCameraService) List(ctx context.Context, plotID *uuid.UUID) ([]camerasvc.CameraDTO, error) {
	return []camerasvc.CameraDTO{}, nil
}

type stubNotificationService struct{}

func (stubNotificationService) List(ctx context.Context, params notifsvc.ListParams) (*notifsvc.ListResult, error) {
	return &notifsvc.ListResult{}, nil
}

func (stubNotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter(visit visitsvc.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if visit == nil {
		visit = stubVisitService{}
	}
	return NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		nil,
		nil,
		stubUserService{},
		stubProjectService{},
		stubPlotService{},
		visit,
		stubLeaveService{},
		stubCameraService{},
		stubNotificationService{},
	)
}

func TestPublicPlotsNeedNoIdentity(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plots", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAuthedGroupRejectsMissingSubject(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/visit-requests", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without subject header got %d", resp.Code)
	}
}

func TestAssignRequiresAdminRole(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/visit-requests/"+uuid.NewString()+"/assign", nil)
	req.Header.Set("X-Subject-Id", "subject-manager")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager on admin route got %d", resp.Code)
	}
}

func TestManagerQueueFlagReachesService(t *testing.T) {
	var seen visitsvc.ListParams
	router := newTestRouter(stubVisitService{listFn: func(ctx context.Context, params visitsvc.ListParams) ([]visitsvc.VisitRequestDTO, error) {
		seen = params
		return []visitsvc.VisitRequestDTO{}, nil
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/visit-requests?manager_queue=true", nil)
	req.Header.Set("X-Subject-Id", "subject-manager")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !seen.ManagerQueue {
		t.Fatal("expected manager queue flag to be set")
	}
	if seen.Viewer.Role != enums.RoleManager {
		t.Fatalf("expected manager viewer got %s", seen.Viewer.Role)
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
