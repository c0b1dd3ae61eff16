package bounds

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DRuanli/PHANTOM/calculator"
	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/put"
	"github.com/DRuanli/PHANTOM/util"
)

// TestBoundAdmissibilityEmpirical seeks violations of eu(Y) <= UB(X) for
// X a strict subset of Y, on random synthetic adversarial databases, as
// called for by the bound-admissibility testable property. Uses strict
// mode (omega=1) since the default omega=0.9 is explicitly documented
// as a source of potential looseness-for-speed trade-off, not a
// guaranteed bound; strict mode is what the open question asks
// implementers to expose for correctness testing.
func TestBoundAdmissibilityEmpirical(t *testing.T) {
	const tolerance = 1e-6

	for seed := int64(0); seed < 10; seed++ {
		db := util.RandomDatabase(seed, 6, 8)
		if db.Empty() {
			continue
		}
		universe := db.ItemList()
		if len(universe) < 2 {
			continue
		}

		tensor := put.Build(db)
		calc := calculator.New(tensor)
		calc.Alpha = 0
		pbc := New(tensor)
		pbc.StrictMode = true

		x := core.NewItemset(universe[0])
		x.EU = calc.Compute(db, x)
		ub, _ := pbc.Bounds(db, x, universe)

		y := x.Union(core.NewItemset(universe[1]))
		y.EU = calc.Compute(db, y)

		assert.LessOrEqual(t, y.EU, ub+tolerance,
			"seed %d: eu(Y)=%v must not exceed UB(X)=%v in strict mode", seed, y.EU, ub)
	}
}
