package lie

// R1, R2 and R3 are the Euclidean groups under addition. Minus and Plus
// reduce to flat subtraction and addition.
type (
	R1 [1]float64
	R2 [2]float64
	R3 [3]float64
)

func (R1) Identity() R1 { return R1{} }
func (R1) Dof() int     { return 1 }

func (r R1) Minus(h R1) Tangent { return Tangent{r[0] - h[0]} }

func (r R1) Plus(a Tangent) R1 {
	mustMatch(Tangent(r[:]), a)
	return R1{r[0] + a[0]}
}

func (R2) Identity() R2 { return R2{} }
func (R2) Dof() int     { return 2 }

func (r R2) Minus(h R2) Tangent { return Tangent{r[0] - h[0], r[1] - h[1]} }

func (r R2) Plus(a Tangent) R2 {
	mustMatch(Tangent(r[:]), a)
	return R2{r[0] + a[0], r[1] + a[1]}
}

func (R3) Identity() R3 { return R3{} }
func (R3) Dof() int     { return 3 }

func (r R3) Minus(h R3) Tangent {
	return Tangent{r[0] - h[0], r[1] - h[1], r[2] - h[2]}
}

func (r R3) Plus(a Tangent) R3 {
	mustMatch(Tangent(r[:]), a)
	return R3{r[0] + a[0], r[1] + a[1], r[2] + a[2]}
}
