//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestCleanup detects defer-based cleanup in tests and suggests t.Cleanup.
//
// Old pattern:
//
//	store := openStore(t)
//	defer store.Close()
//
// New pattern:
//
//	store := openStore(t)
//	t.Cleanup(func() { store.Close() })
//
// t.Cleanup runs after subtests and parallel children, defer does not.
func TestCleanup(m dsl.Matcher) {
	m.Match(`defer $x.Close()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("prefer t.Cleanup(func() { $x.Close() }) over defer in tests")
}

// RequireForFatalAssertions flags assert calls whose failure makes the
// rest of the test meaningless; those should be require so the test
// stops instead of cascading.
//
// Old pattern:
//
//	assert.NoError(t, err)
//	entries[0].Species // panics when err was not nil
//
// Preferred:
//
//	require.NoError(t, err)
func RequireForFatalAssertions(m dsl.Matcher) {
	m.Match(`assert.NoError($t, $err); $res := $x[$i]`).
		Report("use require.NoError before indexing the result")

	m.Match(`assert.NotNil($t, $x); $x.$_`).
		Report("use require.NotNil before dereferencing")
}
