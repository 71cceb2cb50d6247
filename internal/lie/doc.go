// Package lie provides the group and tangent-space algebra consumed by the
// feedback controllers.
//
// A group type G plugs into the controllers by satisfying [Group]:
//
//   - Identity: the identity element (callable on the zero value)
//   - Minus: g ⊖ h = log(h⁻¹ · g), the right-minus
//   - Plus: g ⊕ a = g · exp(a), the right-plus
//   - Dof: dimension of the tangent space
//
// Velocities, accelerations, errors and gains all live in [Tangent].
//
// Concrete groups: [R1], [R2], [R3], [SO2], [SE2], [SO3]. All of them are
// value types whose zero value is the identity.
package lie
