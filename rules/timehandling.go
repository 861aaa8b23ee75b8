//go:build ruleguard

// Package gorules defines custom linter rules for the node codebase.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TimeSinceInTickPath flags wall-clock reads inside tick-driven code.
// Everything on the tick path takes `now` as a parameter so sub-schedule
// due checks stay deterministic and testable; time.Now() belongs in the
// tick driver only.
//
// Old pattern:
//
//	if time.Since(s.state.LastMeshCheck) >= interval { ... }
//
// Preferred:
//
//	if now.Sub(s.state.LastMeshCheck) >= interval { ... }
func TimeSinceInTickPath(m dsl.Matcher) {
	m.Match(
		`time.Since($t) >= $d`,
		`time.Since($t) > $d`,
	).
		Where(m.File().PkgPath.Matches(`internal/(connectivity|dispatch|alert)$`)).
		Report("pass now into the tick path and use now.Sub($t) so due checks are testable")
}

// TimeEqualityComparison detects == / != on time.Time values, which
// compares the monotonic clock reading and location too.
//
// Old pattern:
//
//	if t1 == t2 { ... }
//
// Preferred:
//
//	if t1.Equal(t2) { ... }
func TimeEqualityComparison(m dsl.Matcher) {
	m.Match(`$t1 == $t2`).
		Where(m["t1"].Type.Is("time.Time") && m["t2"].Type.Is("time.Time") && !m["t2"].Text.Matches(`^time\.Time\{\}$`)).
		Report("use $t1.Equal($t2) instead of == for time.Time values").
		Suggest("$t1.Equal($t2)")

	m.Match(`$t1 != $t2`).
		Where(m["t1"].Type.Is("time.Time") && m["t2"].Type.Is("time.Time") && !m["t2"].Text.Matches(`^time\.Time\{\}$`)).
		Report("use !$t1.Equal($t2) instead of != for time.Time values").
		Suggest("!$t1.Equal($t2)")
}
