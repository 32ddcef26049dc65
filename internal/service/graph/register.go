package graph

import (
	"google.golang.org/grpc"
)

// Registrar ties the Graph service into the gRPC server
type Registrar struct {
	mgr *Manager
}

// NewRegistrar creates a new Registrar around an existing Manager, so the
// messages service can share it.
func NewRegistrar(mgr *Manager) *Registrar {
	return &Registrar{mgr: mgr}
}

// Register attaches the Graph service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, &rpc{mgr: r.mgr})
}
