package identity

import (
	"github.com/nexa-sys/userhub/pkg/logger"
)

// Builder resolves one identity per request from an ordered list of
// sources. Source errors are mapped to "unauthenticated" as an explicit
// branch; the builder never propagates a failure into the pipeline.
type Builder struct {
	log logger.Logger
}

// NewBuilder creates a new identity builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{log: log}
}

// Build evaluates the sources in order and returns the first identity
// produced. Later sources are still evaluated so a disagreement between
// them can be logged; the earlier source wins regardless, because the
// gateway is the more trustworthy source in this deployment topology.
func (b *Builder) Build(sources ...Source) *Context {
	var resolved *Context
	var resolvedFrom string

	for _, source := range sources {
		id, err := source.Identity()
		if err != nil {
			b.log.Warn("identity source failed to parse, ignoring", map[string]interface{}{
				"source": source.Name(),
				"reason": err.Error(),
			})
			continue
		}
		if id == nil || !id.Authenticated {
			continue
		}

		if resolved == nil {
			resolved = id
			resolvedFrom = source.Name()
			continue
		}

		if id.UserID != resolved.UserID {
			b.log.Warn("identity sources disagree, keeping higher-priority source", map[string]interface{}{
				"kept_source":   resolvedFrom,
				"kept_user_id":  resolved.UserID,
				"other_source":  source.Name(),
				"other_user_id": id.UserID,
			})
		}
	}

	if resolved == nil {
		return Anonymous()
	}
	return resolved
}
