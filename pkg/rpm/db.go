package rpm

import "iter"

// Match opens an iterator over the records whose field equals key byte for
// byte. There is no partial or pattern matching.
func Match(field SearchField, key string) (*MatchIterator, error) {
	return global().openIterator(field, &key)
}

// MatchAll opens an iterator over every installed record.
func MatchAll() (*MatchIterator, error) {
	return global().openIterator(Name, nil)
}

// Find returns the installed packages whose field equals key.
func Find(field SearchField, key string) (*Iter, error) {
	return global().find(field, &key)
}

// InstalledPackages returns every installed package.
func InstalledPackages() (*Iter, error) {
	return global().find(Name, nil)
}

func (s *globalState) find(field SearchField, key *string) (*Iter, error) {
	mi, err := s.openIterator(field, key)
	if err != nil {
		return nil, err
	}

	return &Iter{mi: mi}, nil
}

// Iter yields owned [Package] values. Like [MatchIterator] it walks its
// query once and releases the cursor when exhausted or closed.
type Iter struct {
	mi  *MatchIterator
	pkg Package
	err error
}

// Next materializes the next package.
func (it *Iter) Next() bool {
	if it.err != nil || !it.mi.Next() {
		it.pkg = Package{}

		return false
	}

	p, err := it.mi.Record().ToPackage()
	if err != nil {
		it.err = err
		it.mi.Close()

		return false
	}

	it.pkg = p

	return true
}

// Package returns the package produced by the last successful Next.
func (it *Iter) Package() Package {
	return it.pkg
}

// Err returns the error that ended iteration, if any.
func (it *Iter) Err() error {
	if it.err != nil {
		return it.err
	}

	return it.mi.Err()
}

// Close releases the cursor. It is safe to call more than once.
func (it *Iter) Close() {
	it.mi.Close()
}

// All returns a range-over-func sequence of the remaining packages. The
// cursor is released when the loop ends, including on break. Check Err
// afterwards.
func (it *Iter) All() iter.Seq[Package] {
	return func(yield func(Package) bool) {
		defer it.Close()

		for it.Next() {
			if !yield(it.pkg) {
				return
			}
		}
	}
}

// Collect drains the iterator and closes it.
func (it *Iter) Collect() ([]Package, error) {
	var pkgs []Package

	for p := range it.All() {
		pkgs = append(pkgs, p)
	}

	return pkgs, it.Err()
}
