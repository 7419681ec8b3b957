package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Handler is implemented by a middleware's gRPC server. It mirrors the
// generated server interface protoc-gen-go-grpc would otherwise produce
// from kubeware.proto's Middleware service.
type Handler interface {
	HandleRequest(ctx context.Context, req *RequestRequest) (*RequestResponse, error)
	HandleResponse(ctx context.Context, req *ResponseRequest) (*ResponseResponse, error)
}

// RegisterMiddlewareServer registers h on srv under the kubeware.Middleware
// service name, using a hand-built grpc.ServiceDesc in place of generated
// registration code (SPEC_FULL.md §4.G). Used both by real middleware
// implementations and by the fake middlewares in the orchestrator's tests.
func RegisterMiddlewareServer(srv *grpc.Server, h Handler) {
	srv.RegisterService(&serviceDesc, h)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "HandleRequest",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(RequestRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(Handler).HandleRequest(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: handleRequestPath}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(Handler).HandleRequest(ctx, req.(*RequestRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "HandleResponse",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(ResponseRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(Handler).HandleResponse(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: handleResponsePath}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(Handler).HandleResponse(ctx, req.(*ResponseRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kubeware.proto",
}
