package messages

import (
	"google.golang.org/grpc"

	"github.com/oggyb/friender/internal/app"
)

// Registrar ties the Message service into the gRPC server
type Registrar struct {
	appCtx  *app.AppContext
	matches MatchLister
}

// NewRegistrar creates a new Registrar for the Message service
func NewRegistrar(appCtx *app.AppContext, matches MatchLister) *Registrar {
	return &Registrar{appCtx: appCtx, matches: matches}
}

// Register attaches the Message service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, &rpc{mgr: NewManager(r.appCtx, r.matches)})
}
