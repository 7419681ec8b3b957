package admin

import "github.com/gedu17/kubeware/internal/middleware"

// DumpRegistry converts a Registry snapshot into its wire shape for
// GET /registry_dump, adapted from the teacher's DumpConfig (spec.md §4.C,
// SPEC_FULL.md §4.K).
func DumpRegistry(reg *middleware.Registry) []EndpointDump {
	entries := reg.All()
	out := make([]EndpointDump, 0, len(entries))
	for _, e := range entries {
		out = append(out, EndpointDump{
			URL:       e.URL(),
			Request:   e.RequestEnabled(),
			Response:  e.ResponseEnabled(),
			TimeoutMs: e.Timeout().Milliseconds(),
			Connected: e.Client() != nil,
		})
	}
	return out
}
