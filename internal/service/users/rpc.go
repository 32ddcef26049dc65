package users

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	svcErr "github.com/oggyb/friender/internal/errors"
	"github.com/oggyb/friender/internal/server"
	"github.com/oggyb/friender/internal/service/graph"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "friender.users.UserService"

// UserServer is the gRPC surface of the users Service.
type UserServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Authenticate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Remove(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServer)(nil),
	Methods: []grpc.MethodDesc{
		server.Unary[UserServer](ServiceName, "Register", UserServer.Register),
		server.Unary[UserServer](ServiceName, "Authenticate", UserServer.Authenticate),
		server.Unary[UserServer](ServiceName, "List", UserServer.List),
		server.Unary[UserServer](ServiceName, "Get", UserServer.Get),
		server.Unary[UserServer](ServiceName, "Update", UserServer.Update),
		server.Unary[UserServer](ServiceName, "Remove", UserServer.Remove),
	},
}

type rpc struct {
	svc *Service
}

// Register: {username, password, first_name, last_name, email, ...} -> {token, user}
func (r *rpc) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, token, err := r.svc.Register(ctx, Registration{
		Username:  server.Str(in, "username"),
		Password:  server.Str(in, "password"),
		FirstName: server.Str(in, "first_name"),
		LastName:  server.Str(in, "last_name"),
		Email:     server.Str(in, "email"),
		Age:       server.Int(in, "age", 0),
		Bio:       server.Str(in, "bio"),
		Interests: server.Str(in, "interests"),
		ImageURL:  server.Str(in, "image_url"),
		Location:  server.Str(in, "location"),
		Radius:    server.Int(in, "radius", 0),
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{
		"token": token,
		"user":  graph.UserFields(user),
	})
}

// Authenticate: {username, password} -> {token}
func (r *rpc) Authenticate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	token, err := r.svc.Authenticate(ctx, server.Str(in, "username"), server.Str(in, "password"))
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{"token": token})
}

// List: {page_token?, limit?} -> {users, next_page_token}
func (r *rpc) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := server.Caller(ctx); err != nil {
		return nil, err
	}

	users, next, err := r.svc.List(ctx, server.Str(in, "page_token"), server.Int(in, "limit", 0))
	if err != nil {
		return nil, svcErr.Map(err)
	}
	list := make([]any, len(users))
	for i := range users {
		list[i] = graph.UserFields(&users[i])
	}
	return server.Out(map[string]any{
		"users":           list,
		"next_page_token": next,
	})
}

// Get: {username?} -> {user}
func (r *rpc) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}
	username := server.Str(in, "username")
	if username == "" {
		username = caller.Username
	}

	user, err := r.svc.Get(ctx, username)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{"user": graph.UserFields(user)})
}

// Update: {username?, <fields>...} -> {user}
func (r *rpc) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}
	username := server.Str(in, "username")
	if username == "" {
		username = caller.Username
	}

	user, err := r.svc.Update(ctx, caller, username, ProfileUpdate{
		FirstName: server.OptStr(in, "first_name"),
		LastName:  server.OptStr(in, "last_name"),
		Email:     server.OptStr(in, "email"),
		Password:  server.OptStr(in, "password"),
		Age:       server.OptInt(in, "age"),
		Bio:       server.OptStr(in, "bio"),
		Interests: server.OptStr(in, "interests"),
		ImageURL:  server.OptStr(in, "image_url"),
		Location:  server.OptStr(in, "location"),
		Radius:    server.OptInt(in, "radius"),
		IsAdmin:   server.OptBool(in, "is_admin"),
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{"user": graph.UserFields(user)})
}

// Remove: {username?} -> {deleted}
func (r *rpc) Remove(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}
	username := server.Str(in, "username")
	if username == "" {
		username = caller.Username
	}

	if err := r.svc.Remove(ctx, caller, username); err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{"deleted": username})
}
