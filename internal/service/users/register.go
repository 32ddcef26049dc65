package users

import (
	"google.golang.org/grpc"

	"github.com/oggyb/friender/internal/app"
	"github.com/oggyb/friender/internal/server"
)

// Registrar ties the User service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the User service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the User service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, &rpc{svc: NewService(r.appCtx)})
}

// PublicMethods are reachable without a token.
func (r *Registrar) PublicMethods() []string {
	return []string{
		server.FullMethod(ServiceName, "Register"),
		server.FullMethod(ServiceName, "Authenticate"),
	}
}
