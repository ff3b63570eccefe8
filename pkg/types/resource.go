package types

// Resource identifies one physical data container and the fixed parameters
// needed to open it. Resources are immutable once persisted.
type Resource struct {
	ID             string `json:"_id"`
	Spec           string `json:"spec"`
	ResourcePath   string `json:"resource_path"`
	ResourceKwargs Kwargs `json:"resource_kwargs"`
}

// Clone returns a copy of r whose kwargs share no state with r.
func (r Resource) Clone() Resource {
	r.ResourceKwargs = r.ResourceKwargs.Clone()
	return r
}

// ResourceRef is accepted wherever either a full Resource or a bare resource
// identifier may be passed.
type ResourceRef interface {
	RefID() string
}

// ResourceID is a bare resource identifier. It is resolved by a store lookup
// when used as a ResourceRef.
type ResourceID string

// RefID implements ResourceRef.
func (id ResourceID) RefID() string { return string(id) }

// RefID implements ResourceRef.
func (r Resource) RefID() string { return r.ID }
