package fetcher

import (
	"go.uber.org/zap"

	"github.com/sardanioss/resourcefetch/resource"
	"github.com/sardanioss/resourcefetch/session"
)

// buildExplicitResources implements spec.md §4.2: for each declared
// request template, resolve its name against sess and build it,
// logging/reporting and dropping on either failure. These take
// precedence over inferred resources on URI collision (spec.md §4.3).
func (c *Config) buildExplicitResources(templates []RequestTemplate, sess *session.Session) []resource.Request {
	reqs := make([]resource.Request, 0, len(templates))
	for _, tmpl := range templates {
		name, err := tmpl.RequestName(sess)
		if err != nil {
			c.Logger.Error("resourcefetch: unresolvable explicit request name", zap.Error(err))
			continue
		}

		req, err := tmpl.Build(name, sess)
		if err != nil {
			if c.OnUnbuildableRequest != nil {
				c.OnUnbuildableRequest(name, err)
			}
			c.Logger.Error("resourcefetch: dropping unbuildable explicit resource",
				zap.String("name", name), zap.Error(err))
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs
}
