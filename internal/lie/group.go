package lie

// Group is the capability a state space must provide to be controlled.
type Group[G any] interface {
	// Identity returns the identity element. It must not depend on the receiver.
	Identity() G
	// Minus returns the tangent displacement from h to the receiver.
	Minus(h G) Tangent
	// Plus moves the receiver along a in its body frame.
	Plus(a Tangent) G
	// Dof returns the tangent space dimension. It must not depend on the receiver.
	Dof() int
}

// FromTangent returns Identity ⊕ a, the group element with coordinates a.
func FromTangent[G Group[G]](a Tangent) G {
	var zero G
	return zero.Identity().Plus(a)
}

// Coords returns g ⊖ Identity.
func Coords[G Group[G]](g G) Tangent {
	return g.Minus(g.Identity())
}

// Dof returns the tangent dimension of G.
func Dof[G Group[G]]() int {
	var zero G
	return zero.Dof()
}
