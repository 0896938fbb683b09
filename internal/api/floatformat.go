package api

import "strconv"

// prometheusFloat renders v the way Prometheus's own matrix values are
// encoded: a plain decimal string, shortest round-trip representation.
func prometheusFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
