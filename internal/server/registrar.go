package server

import "google.golang.org/grpc"

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// PublicRegistrar is implemented by registrars exposing methods callable
// without a token. Values are full method names ("/pkg.Service/Method").
type PublicRegistrar interface {
	PublicMethods() []string
}

// PublicMethods collects the public methods of all registrars.
func PublicMethods(registrars ...Registrar) []string {
	var out []string
	for _, r := range registrars {
		if p, ok := r.(PublicRegistrar); ok {
			out = append(out, p.PublicMethods()...)
		}
	}
	return out
}
