package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const dashboardServiceName = "btdash.v1.Dashboard"

// dashboardService is the gRPC surface. Every method replays the matching
// JSON API call through the HTTP router and returns its body as a Struct.
type dashboardService interface {
	GetServerInfo(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListBuilds(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetBuild(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListPackageResults(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCategories(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetCategory(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

type dashboardGRPCServer struct {
	router http.Handler
	base   string
}

func newDashboardGRPCServer(router http.Handler, basePrefix string) *dashboardGRPCServer {
	if !strings.HasSuffix(basePrefix, "/") {
		basePrefix += "/"
	}
	return &dashboardGRPCServer{router: router, base: basePrefix}
}

func unaryMethod[Req proto.Message](name string, newReq func() Req, call func(dashboardService, context.Context, Req) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(dashboardService)
			if interceptor == nil {
				return call(impl, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + dashboardServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(impl, ctx, req.(Req))
			})
		},
	}
}

func newEmpty() *emptypb.Empty           { return &emptypb.Empty{} }
func newString() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }
func newStruct() *structpb.Struct        { return &structpb.Struct{} }

var dashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: dashboardServiceName,
	HandlerType: (*dashboardService)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetServerInfo", newEmpty, dashboardService.GetServerInfo),
		unaryMethod("ListBuilds", newEmpty, dashboardService.ListBuilds),
		unaryMethod("GetBuild", newString, dashboardService.GetBuild),
		unaryMethod("ListPackageResults", newStruct, dashboardService.ListPackageResults),
		unaryMethod("ListCategories", newEmpty, dashboardService.ListCategories),
		unaryMethod("GetCategory", newString, dashboardService.GetCategory),
	},
	Metadata: "btdash/v1/dashboard.proto",
}

func registerDashboardGRPCService(s *grpc.Server, impl dashboardService) {
	s.RegisterService(&dashboardServiceDesc, impl)
}

// startGRPCServer serves the bridge on addr until the returned function is
// called.
func startGRPCServer(addr string, router http.Handler, basePrefix string) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen grpc: %w", err)
	}
	srv := grpc.NewServer()
	registerDashboardGRPCService(srv, newDashboardGRPCServer(router, basePrefix))
	go func() {
		slog.Info("btdash gRPC bridge started", "addr", addr)
		if err := srv.Serve(lis); err != nil {
			slog.Error("grpc serve", "error", err)
		}
	}()
	return srv.GracefulStop, nil
}

func (g *dashboardGRPCServer) GetServerInfo(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return g.invokeStruct(ctx, "api/v1/server-info")
}

func (g *dashboardGRPCServer) ListBuilds(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return g.invokeStruct(ctx, "api/v1/builds")
}

func (g *dashboardGRPCServer) GetBuild(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "build id is required")
	}
	return g.invokeStruct(ctx, "api/v1/builds/"+url.PathEscape(id))
}

// ListPackageResults takes {"package": "category/name", "variant": "all",
// "status": "failed"}; only package is required.
func (g *dashboardGRPCServer) ListPackageResults(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	pkg := strings.Trim(strings.TrimSpace(fields["package"].GetStringValue()), "/")
	if pkg == "" {
		return nil, status.Error(codes.InvalidArgument, "package is required")
	}
	cat, name, err := parsePackagePath(pkg)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	query := url.Values{}
	for _, k := range []string{"variant", "status"} {
		if v := strings.TrimSpace(fields[k].GetStringValue()); v != "" {
			query.Set(k, v)
		}
	}
	path := "api/v1/pkgresults/" + url.PathEscape(cat) + "/" + url.PathEscape(name)
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return g.invokeStruct(ctx, path)
}

func (g *dashboardGRPCServer) ListCategories(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return g.invokeStruct(ctx, "api/v1/categories")
}

func (g *dashboardGRPCServer) GetCategory(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	name := strings.TrimSpace(req.GetValue())
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "category name is required")
	}
	return g.invokeStruct(ctx, "api/v1/categories/"+url.PathEscape(name))
}

func (g *dashboardGRPCServer) invokeStruct(ctx context.Context, relPath string) (*structpb.Struct, error) {
	raw, err := g.invokeJSON(ctx, http.MethodGet, g.base+relPath)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "decode JSON response: %v", err)
	}
	return out, nil
}

func (g *dashboardGRPCServer) invokeJSON(ctx context.Context, method, targetPath string) ([]byte, error) {
	if g == nil || g.router == nil {
		return nil, status.Error(codes.Internal, "gRPC bridge is not initialized")
	}
	req := httptest.NewRequest(method, targetPath, nil).WithContext(ctx)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	rawBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(string(rawBody))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, status.Errorf(httpStatusToGRPCCode(resp.StatusCode), "http %d: %s", resp.StatusCode, msg)
	}
	return rawBody, nil
}

func httpStatusToGRPCCode(statusCode int) codes.Code {
	switch statusCode {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusMethodNotAllowed:
		return codes.Unimplemented
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return codes.Unavailable
	default:
		if statusCode >= 500 {
			return codes.Internal
		}
		return codes.Unknown
	}
}
