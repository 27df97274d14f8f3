package ingest

import "strings"

// layerKeywords maps each layer to the substrings that identify it. Order
// matters: staging is checked before intermediate before marts, and the
// first match wins.
var layerKeywords = map[string][]string{
	"staging":      {"staging", "stg"},
	"intermediate": {"intermediate", "int"},
	"marts":        {"marts", "mart", "fct", "dim", "agg", "rpt", "report"},
}

var layerOrder = []string{"staging", "intermediate", "marts"}

// detectLayer infers a model's layer from its fqn path (excluding the
// leading package-name segment), its lowercased name, and its tags. A
// keyword matches a segment if the segment equals it, starts with it, or
// contains it preceded by a "/" (i.e. as a path component).
func detectLayer(fqn []string, name string, tags []string) string {
	segments := make([]string, 0, len(fqn)+len(tags)+1)
	if len(fqn) > 1 {
		segments = append(segments, fqn[1:]...)
	}
	segments = append(segments, strings.ToLower(name))
	segments = append(segments, tags...)

	for _, layer := range layerOrder {
		for _, seg := range segments {
			seg = strings.ToLower(seg)
			for _, kw := range layerKeywords[layer] {
				if seg == kw || strings.HasPrefix(seg, kw) || strings.Contains(seg, "/"+kw) {
					return layer
				}
			}
		}
	}
	return "other"
}
