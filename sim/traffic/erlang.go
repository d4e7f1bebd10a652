package traffic

// ErlangDistribution returns the analytic occupancy distribution p[0..v] of a
// loss system with v servers and offered load a (Erlang's loss model). The
// result holds for Poisson arrivals and any service time distribution.
//
// Terms are built by the recurrence t[n] = t[n-1]·a/n to avoid factorials.
func ErlangDistribution(a float64, v int) []float64 {
	if v < 0 {
		return nil
	}
	p := make([]float64, v+1)
	p[0] = 1
	sum := 1.0
	for n := 1; n <= v; n++ {
		p[n] = p[n-1] * a / float64(n)
		sum += p[n]
	}
	for n := range p {
		p[n] /= sum
	}
	return p
}

// ErlangB returns the blocking probability p[v] of the Erlang loss model.
func ErlangB(a float64, v int) float64 {
	p := ErlangDistribution(a, v)
	if len(p) == 0 {
		return 0
	}
	return p[v]
}
