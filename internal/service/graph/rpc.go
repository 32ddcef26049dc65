package graph

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/friender/internal/auth"
	"github.com/oggyb/friender/internal/db"
	svcErr "github.com/oggyb/friender/internal/errors"
	"github.com/oggyb/friender/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "friender.graph.GraphService"

// GraphServer is the gRPC surface of the graph Manager.
type GraphServer interface {
	RecordLike(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordDislike(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GraphServer)(nil),
	Methods: []grpc.MethodDesc{
		server.Unary[GraphServer](ServiceName, "RecordLike", GraphServer.RecordLike),
		server.Unary[GraphServer](ServiceName, "RecordDislike", GraphServer.RecordDislike),
		server.Unary[GraphServer](ServiceName, "CreateMatch", GraphServer.CreateMatch),
		server.Unary[GraphServer](ServiceName, "GetProfile", GraphServer.GetProfile),
	},
}

// rpc adapts Manager to GraphServer. The acting user defaults to the caller;
// acting for someone else requires admin.
type rpc struct {
	mgr *Manager
}

// RecordLike: {liker?, liked} -> {liker, liked, matched}
func (r *rpc) RecordLike(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}
	liker, err := actor(caller, server.Str(in, "liker"))
	if err != nil {
		return nil, err
	}
	liked, err := server.Require(in, "liked")
	if err != nil {
		return nil, err
	}

	res, err := r.mgr.RecordLike(ctx, liker, liked)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{
		"liker":   res.Like.Liker,
		"liked":   res.Like.Liked,
		"matched": res.Matched,
	})
}

// RecordDislike: {disliker?, disliked} -> {disliker, disliked}
func (r *rpc) RecordDislike(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}
	disliker, err := actor(caller, server.Str(in, "disliker"))
	if err != nil {
		return nil, err
	}
	disliked, err := server.Require(in, "disliked")
	if err != nil {
		return nil, err
	}

	d, err := r.mgr.RecordDislike(ctx, disliker, disliked)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{
		"disliker": d.Disliker,
		"disliked": d.Disliked,
	})
}

// CreateMatch: {username_first, username_second} -> same, normalized.
// Admins may match anyone. Anyone else must be one of the two, and the pair
// must already like each other.
func (r *rpc) CreateMatch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}
	a, err := server.Require(in, "username_first")
	if err != nil {
		return nil, err
	}
	b, err := server.Require(in, "username_second")
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin {
		if caller.Username != a && caller.Username != b {
			return nil, svcErr.Map(svcErr.Unauthorized("must be admin or part of the match"))
		}
		mutual, err := r.mgr.MutuallyLiked(ctx, a, b)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		if !mutual {
			return nil, svcErr.Map(svcErr.Unauthorized("%s and %s do not like each other", a, b))
		}
	}

	m, err := r.mgr.CreateMatch(ctx, a, b)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{
		"username_first":  m.UsernameFirst,
		"username_second": m.UsernameSecond,
	})
}

// GetProfile: {username?} -> profile with likes, dislikes and matches.
func (r *rpc) GetProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}
	username := server.Str(in, "username")
	if username == "" {
		username = caller.Username
	}

	p, err := r.mgr.GetProfile(ctx, username)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := UserFields(p.User)
	out["likes"] = server.List(p.Likes)
	out["dislikes"] = server.List(p.Dislikes)
	out["matches"] = server.List(p.Matches)
	return server.Out(out)
}

// UserFields is the wire form of a user. The password hash never leaves.
func UserFields(u *db.User) map[string]any {
	return map[string]any{
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
		"age":        u.Age,
		"bio":        u.Bio,
		"interests":  u.Interests,
		"image_url":  u.ImageURL,
		"location":   u.Location,
		"radius":     u.Radius,
		"is_admin":   u.IsAdmin,
	}
}

func actor(caller auth.Identity, requested string) (string, error) {
	if requested == "" {
		return caller.Username, nil
	}
	if !caller.CanActAs(requested) {
		return "", svcErr.Map(svcErr.Unauthorized("cannot act for %s", requested))
	}
	return requested, nil
}
