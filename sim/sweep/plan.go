package sweep

import (
	"fmt"

	"github.com/inference-sim/loss-sim/sim/traffic"
)

// Infeasible is a parameter combination no distribution could be fitted to.
type Infeasible struct {
	Descriptor traffic.Descriptor
	Err        error
}

func (i Infeasible) String() string {
	return fmt.Sprintf("%s: %v", i.Descriptor, i.Err)
}

// Plan is the expanded sweep: every feasible traffic class in enumeration
// order, plus the combinations that were skipped.
type Plan struct {
	Classes    []*traffic.TrafficClass
	Infeasible []Infeasible
}

// Cells returns the number of (class, capacity) cells the plan covers.
func (p Plan) Cells(maxCapacity int) int {
	return len(p.Classes) * maxCapacity
}

// BuildPlan enumerates arrival family × service family × arrival E²/D² ×
// service E²/D² × offered load. Service intensity is fixed at 1, so the
// arrival intensity equals the offered load.
func BuildPlan(cfg Config) Plan {
	var p Plan
	loads := cfg.Load.Values()
	arrShapes := cfg.ArrivalE2D2.Values()
	servShapes := cfg.ServiceE2D2.Values()
	for _, arr := range cfg.ArrivalTypes {
		for _, serv := range cfg.ServiceTypes {
			for _, arrE2D2 := range arrShapes {
				for _, servE2D2 := range servShapes {
					for _, a := range loads {
						d := traffic.Descriptor{A: a, ArrivalType: arr, ArrivalE2D2: arrE2D2, ServiceType: serv, ServiceE2D2: servE2D2}
						class, err := traffic.FromDescriptor(d)
						if err != nil {
							p.Infeasible = append(p.Infeasible, Infeasible{Descriptor: d, Err: err})
							continue
						}
						p.Classes = append(p.Classes, class)
					}
				}
			}
		}
	}
	return p
}
