package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/friender/internal/auth"
	svcErr "github.com/oggyb/friender/internal/errors"
)

// StructMethod is an RPC implementation taking and returning a structpb.Struct.
type StructMethod[S any] func(srv S, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// Unary builds the grpc.MethodDesc for one method of service, so services can
// be registered without generated stubs. S is the server interface the
// registered implementation satisfies.
func Unary[S any](service, method string, call StructMethod[S]) grpc.MethodDesc {
	fullMethod := FullMethod(service, method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod joins service and method the way gRPC names them on the wire.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// Caller returns the identity attached by the auth interceptor.
func Caller(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Identity{}, svcErr.Unauthenticated("authorization required")
	}
	return id, nil
}
