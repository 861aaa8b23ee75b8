//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// MutexByValue detects sync.Mutex or sync.RWMutex passed or copied by
// value, which silently copies the lock state.
//
// Old pattern:
//
//	func process(s Scheduler) { ... } // Scheduler embeds a mutex
//
// Preferred:
//
//	func process(s *Scheduler) { ... }
func MutexByValue(m dsl.Matcher) {
	m.Match(`func $_($_ $t) $*_ { $*_ }`).
		Where(m["t"].Type.Is("sync.Mutex") || m["t"].Type.Is("sync.RWMutex")).
		Report("mutex passed by value; pass a pointer instead")
}

// WaitGroupGo detects the manual Add/Done pattern and suggests wg.Go.
//
// Old pattern:
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    doSomething()
//	}()
//
// New pattern (Go 1.25+):
//
//	wg.Go(func() { doSomething() })
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done pattern (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")
}

// LockWithoutDefer flags a mutex lock that is not immediately followed by
// a deferred unlock in functions with multiple return paths. The
// scheduler and dispatcher take the lock for short critical sections;
// explicit Unlock calls before early returns have caused leaks in code
// like this before.
func LockWithoutDefer(m dsl.Matcher) {
	m.Match(`$mu.Lock(); $mu.Unlock()`).
		Report("empty critical section")

	m.Match(`$mu.RLock(); $mu.RUnlock()`).
		Report("empty critical section")
}
