package salary

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
)

// Resolve picks the structure in force on asOf: the highest version whose
// effective date is on or before asOf. When every version starts later, the
// most recent version is used. An empty history yields ErrNoStructureFound.
func Resolve(versions []Structure, asOf time.Time) (Structure, error) {
	if len(versions) == 0 {
		return Structure{}, ErrNoStructureFound
	}
	asOf = period.DateOnly(asOf)

	var best, latest *Structure
	for i := range versions {
		v := &versions[i]
		if latest == nil || v.Version > latest.Version {
			latest = v
		}
		if period.DateOnly(v.EffectiveFrom).After(asOf) {
			continue
		}
		if best == nil || v.Version > best.Version {
			best = v
		}
	}
	if best == nil {
		best = latest
	}
	return *best, nil
}
