package messages

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	svcErr "github.com/oggyb/friender/internal/errors"
	"github.com/oggyb/friender/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "friender.messages.MessageService"

// MessageServer is the gRPC surface of the messages Manager.
type MessageServer interface {
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CountUnread(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		server.Unary[MessageServer](ServiceName, "Create", MessageServer.Create),
		server.Unary[MessageServer](ServiceName, "Get", MessageServer.Get),
		server.Unary[MessageServer](ServiceName, "MarkRead", MessageServer.MarkRead),
		server.Unary[MessageServer](ServiceName, "CountUnread", MessageServer.CountUnread),
	},
}

type rpc struct {
	mgr *Manager
}

// Create: {to_username, body} -> {id, from_username, to_username, body, sent_at, read_at}
// The sender is always the caller.
func (r *rpc) Create(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := r.mgr.CreateMessage(ctx, caller.Username, server.Str(in, "to_username"), server.Str(in, "body"))
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{
		"id":            msg.ID,
		"from_username": msg.FromUsername,
		"to_username":   msg.ToUsername,
		"body":          msg.Body,
		"sent_at":       server.Time(msg.SentAt),
		"read_at":       server.OptTime(msg.ReadAt),
	})
}

// Get: {id} -> {id, body, sent_at, read_at, from_user, to_user}
func (r *rpc) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := server.Require(in, "id")
	if err != nil {
		return nil, err
	}

	d, err := r.mgr.GetMessage(ctx, caller, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{
		"id":        d.ID,
		"body":      d.Body,
		"sent_at":   server.Time(d.SentAt),
		"read_at":   server.OptTime(d.ReadAt),
		"from_user": summaryFields(d.From),
		"to_user":   summaryFields(d.To),
	})
}

// MarkRead: {id} -> {id, read_at}
func (r *rpc) MarkRead(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := server.Require(in, "id")
	if err != nil {
		return nil, err
	}

	rr, err := r.mgr.MarkRead(ctx, caller, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{
		"id":      rr.ID,
		"read_at": server.Time(rr.ReadAt),
	})
}

// CountUnread: {} -> {count}
func (r *rpc) CountUnread(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	caller, err := server.Caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := r.mgr.CountUnread(ctx, caller)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return server.Out(map[string]any{"count": n})
}

func summaryFields(s Summary) map[string]any {
	return map[string]any{
		"username":   s.Username,
		"first_name": s.FirstName,
		"last_name":  s.LastName,
		"email":      s.Email,
	}
}
