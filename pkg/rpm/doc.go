// Package rpm is a safe front end to the installed-package database.
//
// The underlying engine keeps process-global state that must not be entered
// concurrently: a one-shot configuration step, a shared macro table and
// database cursors. This package owns that state behind a single mutex and
// exposes only operations that are safe to call from any goroutine.
//
// # Basic Usage
//
//	if err := rpm.SetDBPath("/var/lib/rpm"); err != nil {
//	    return err
//	}
//
//	if err := rpm.ReadFile(""); err != nil && !errors.Is(err, rpm.ErrAlreadyConfigured) {
//	    return err
//	}
//
//	pkgs, err := rpm.Find(rpm.Name, "bash")
//	if err != nil {
//	    return err
//	}
//	defer pkgs.Close()
//
//	for pkgs.Next() {
//	    fmt.Println(pkgs.Package().NEVRA())
//	}
//
//	if err := pkgs.Err(); err != nil {
//	    return err
//	}
//
// # Configuration
//
// [ReadFile] runs at most once per process. Every later call, including a
// retry after a failed first attempt, returns [ErrAlreadyConfigured]; treat
// it as a precondition check rather than a failure.
//
// # Macros
//
// Definitions made through [MacroContext.Define] apply to the shared macro
// table immediately. When two definitions of a name compete, the one with
// the higher or equal level wins by default; see [SetMacroPrecedence].
//
// # Iteration
//
// A [MatchIterator] walks one query once. The [Record] it yields is a view
// into the engine's cursor and is only valid until the next call to Next;
// [Record.ToPackage] copies it into an owned [Package]. The cursor is
// released exactly once: when the iterator is exhausted, fails, is closed,
// or becomes unreachable.
package rpm
