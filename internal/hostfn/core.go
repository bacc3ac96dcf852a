package hostfn

import (
	"log/slog"

	"github.com/vk/flowgridgo/internal/payload"
)

// RegisterCore installs the default host function surface: a logging sink
// and media reference resolution against the run's read-only resolver.
func RegisterCore(r *Registry, logger *slog.Logger, resolver *payload.Resolver) {
	r.Register("Log", func(msg string) {
		logger.Info("script log", "message", msg)
	})
	r.Register("Resolve", func(ref string) (string, error) {
		return resolver.Resolve(ref)
	})
}
