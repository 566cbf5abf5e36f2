// Package grpcserver exposes the catalog service over gRPC with a JSON
// wire codec, next to the standard health service.
package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"engram/internal/search"
	"engram/internal/unified"
	"engram/pkg/logger"
	"engram/pkg/models"
)

type Service interface {
	Branches(ctx context.Context) ([]string, error)
	Semesters(ctx context.Context, branch string) ([]string, error)
	Subjects(ctx context.Context, branch, semester string) ([]string, error)
	Materials(ctx context.Context, branch, semester, subject string) models.MaterialSet
	Syllabus(ctx context.Context, branch, semester, subject string) (models.Syllabus, bool)
	Videos(ctx context.Context, branch, semester, subject string) []models.VideoDescriptor
	Mapping(subject, branch, semester string) models.SubjectMapping
	Search(ctx context.Context, query string, limit, offset int) (search.Result, error)
}

type Server struct {
	Svc Service
}

func NewServer(svc Service) *Server {
	return &Server{Svc: svc}
}

// New builds a grpc.Server carrying the catalog and health services.
func New(svc Service, log *logger.Logger, opts ...grpc.ServerOption) *grpc.Server {
	log = logger.OrNop(log).With("component", "grpc")
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(LoggingInterceptor(log))}, opts...)
	s := grpc.NewServer(opts...)

	RegisterCatalogServer(s, NewServer(svc))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s
}

func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("grpc request", "method", info.FullMethod, "code", status.Code(err).String(), "took", time.Since(start))
		return resp, err
	}
}

func listError(err error) error {
	if errors.Is(err, unified.ErrAllSourcesFailed) {
		return status.Error(codes.Unavailable, "catalogs unavailable")
	}
	return status.Error(codes.Internal, "list failed")
}

func subjectArgs(req *SubjectRequest) (string, string, string, error) {
	if req == nil {
		return "", "", "", status.Error(codes.InvalidArgument, "request required")
	}
	b, sem, subj := strings.TrimSpace(req.Branch), strings.TrimSpace(req.Semester), strings.TrimSpace(req.Subject)
	if b == "" || sem == "" || subj == "" {
		return "", "", "", status.Error(codes.InvalidArgument, "branch, semester and subject required")
	}
	return b, sem, subj, nil
}

func (s *Server) ListBranches(ctx context.Context, _ *ListBranchesRequest) (*ListResponse, error) {
	items, err := s.Svc.Branches(ctx)
	if err != nil {
		return nil, listError(err)
	}
	return &ListResponse{Items: items}, nil
}

func (s *Server) ListSemesters(ctx context.Context, req *ListSemestersRequest) (*ListResponse, error) {
	if req == nil || strings.TrimSpace(req.Branch) == "" {
		return nil, status.Error(codes.InvalidArgument, "branch required")
	}
	items, err := s.Svc.Semesters(ctx, strings.TrimSpace(req.Branch))
	if err != nil {
		return nil, listError(err)
	}
	return &ListResponse{Items: items}, nil
}

func (s *Server) ListSubjects(ctx context.Context, req *ListSubjectsRequest) (*ListResponse, error) {
	if req == nil || strings.TrimSpace(req.Branch) == "" || strings.TrimSpace(req.Semester) == "" {
		return nil, status.Error(codes.InvalidArgument, "branch and semester required")
	}
	items, err := s.Svc.Subjects(ctx, strings.TrimSpace(req.Branch), strings.TrimSpace(req.Semester))
	if err != nil {
		return nil, listError(err)
	}
	return &ListResponse{Items: items}, nil
}

func (s *Server) GetMaterials(ctx context.Context, req *SubjectRequest) (*MaterialsResponse, error) {
	b, sem, subj, err := subjectArgs(req)
	if err != nil {
		return nil, err
	}
	set := s.Svc.Materials(ctx, b, sem, subj)
	return &MaterialsResponse{Total: set.Total(), Materials: set}, nil
}

func (s *Server) GetSyllabus(ctx context.Context, req *SubjectRequest) (*SyllabusResponse, error) {
	b, sem, subj, err := subjectArgs(req)
	if err != nil {
		return nil, err
	}
	syl, ok := s.Svc.Syllabus(ctx, b, sem, subj)
	if !ok {
		return nil, status.Error(codes.NotFound, "no syllabus")
	}
	return &SyllabusResponse{Units: syl}, nil
}

func (s *Server) GetVideos(ctx context.Context, req *SubjectRequest) (*VideosResponse, error) {
	b, sem, subj, err := subjectArgs(req)
	if err != nil {
		return nil, err
	}
	return &VideosResponse{Items: s.Svc.Videos(ctx, b, sem, subj)}, nil
}

func (s *Server) MapSubject(_ context.Context, req *MapSubjectRequest) (*MapSubjectResponse, error) {
	if req == nil || strings.TrimSpace(req.Subject) == "" {
		return nil, status.Error(codes.InvalidArgument, "subject required")
	}
	return &MapSubjectResponse{Mapping: s.Svc.Mapping(req.Subject, req.Branch, req.Semester)}, nil
}

func (s *Server) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	res, err := s.Svc.Search(ctx, req.Query, req.Limit, req.Offset)
	if err != nil {
		return nil, listError(err)
	}
	return &SearchResponse{Result: res}, nil
}
