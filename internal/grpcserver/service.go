package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"engram/internal/search"
	"engram/pkg/models"
)

const ServiceName = "engram.v1.CatalogService"

type ListBranchesRequest struct{}

type ListSemestersRequest struct {
	Branch string `json:"branch"`
}

type ListSubjectsRequest struct {
	Branch   string `json:"branch"`
	Semester string `json:"semester"`
}

type ListResponse struct {
	Items []string `json:"items"`
}

type SubjectRequest struct {
	Branch   string `json:"branch"`
	Semester string `json:"semester"`
	Subject  string `json:"subject"`
}

type MaterialsResponse struct {
	Total     int                `json:"total"`
	Materials models.MaterialSet `json:"materials"`
}

type SyllabusResponse struct {
	Units models.Syllabus `json:"units"`
}

type VideosResponse struct {
	Items []models.VideoDescriptor `json:"items"`
}

type MapSubjectRequest struct {
	Subject  string `json:"subject"`
	Branch   string `json:"branch"`
	Semester string `json:"semester"`
}

type MapSubjectResponse struct {
	Mapping models.SubjectMapping `json:"mapping"`
}

type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type SearchResponse struct {
	Result search.Result `json:"result"`
}

// CatalogServer is the server API of engram.v1.CatalogService.
type CatalogServer interface {
	ListBranches(context.Context, *ListBranchesRequest) (*ListResponse, error)
	ListSemesters(context.Context, *ListSemestersRequest) (*ListResponse, error)
	ListSubjects(context.Context, *ListSubjectsRequest) (*ListResponse, error)
	GetMaterials(context.Context, *SubjectRequest) (*MaterialsResponse, error)
	GetSyllabus(context.Context, *SubjectRequest) (*SyllabusResponse, error)
	GetVideos(context.Context, *SubjectRequest) (*VideosResponse, error)
	MapSubject(context.Context, *MapSubjectRequest) (*MapSubjectResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
}

func unary[Req, Resp any](method string, call func(CatalogServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CatalogServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListBranches", CatalogServer.ListBranches),
		unary("ListSemesters", CatalogServer.ListSemesters),
		unary("ListSubjects", CatalogServer.ListSubjects),
		unary("GetMaterials", CatalogServer.GetMaterials),
		unary("GetSyllabus", CatalogServer.GetSyllabus),
		unary("GetVideos", CatalogServer.GetVideos),
		unary("MapSubject", CatalogServer.MapSubject),
		unary("Search", CatalogServer.Search),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "engram/v1/catalog",
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

// CatalogClient calls engram.v1.CatalogService over the JSON codec.
type CatalogClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogClient(cc grpc.ClientConnInterface) *CatalogClient {
	return &CatalogClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogClient) ListBranches(ctx context.Context, in *ListBranchesRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, "ListBranches", in, opts)
}

func (c *CatalogClient) ListSemesters(ctx context.Context, in *ListSemestersRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, "ListSemesters", in, opts)
}

func (c *CatalogClient) ListSubjects(ctx context.Context, in *ListSubjectsRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, "ListSubjects", in, opts)
}

func (c *CatalogClient) GetMaterials(ctx context.Context, in *SubjectRequest, opts ...grpc.CallOption) (*MaterialsResponse, error) {
	return invoke[MaterialsResponse](ctx, c.cc, "GetMaterials", in, opts)
}

func (c *CatalogClient) GetSyllabus(ctx context.Context, in *SubjectRequest, opts ...grpc.CallOption) (*SyllabusResponse, error) {
	return invoke[SyllabusResponse](ctx, c.cc, "GetSyllabus", in, opts)
}

func (c *CatalogClient) GetVideos(ctx context.Context, in *SubjectRequest, opts ...grpc.CallOption) (*VideosResponse, error) {
	return invoke[VideosResponse](ctx, c.cc, "GetVideos", in, opts)
}

func (c *CatalogClient) MapSubject(ctx context.Context, in *MapSubjectRequest, opts ...grpc.CallOption) (*MapSubjectResponse, error) {
	return invoke[MapSubjectResponse](ctx, c.cc, "MapSubject", in, opts)
}

func (c *CatalogClient) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c.cc, "Search", in, opts)
}
