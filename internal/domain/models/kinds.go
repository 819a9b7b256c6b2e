// internal/domain/models/kinds.go
package models

// Kind names a shareable resource type. Communities are included because
// they resolve through the same membership graph.
type Kind string

const (
	KindCamera    Kind = "camera"
	KindSighting  Kind = "sighting"
	KindArea      Kind = "geoarea"
	KindCommunity Kind = "community"
)

// Collection is the collection holding resources of this kind.
func (k Kind) Collection() string {
	switch k {
	case KindCamera:
		return "cameras"
	case KindSighting:
		return "sightings"
	case KindArea:
		return "geoareas"
	case KindCommunity:
		return "communities"
	}
	return ""
}

// EdgeCollection is the join collection linking resources of this kind to
// communities. Communities have none; they join users directly.
func (k Kind) EdgeCollection() string {
	switch k {
	case KindCamera:
		return "camera_communities"
	case KindSighting:
		return "sighting_communities"
	case KindArea:
		return "geoarea_communities"
	}
	return ""
}

// ResourceKinds are the kinds registered through community edges.
var ResourceKinds = []Kind{KindCamera, KindSighting, KindArea}
