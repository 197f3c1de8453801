package types

// Notices collects advisory messages raised while a record moves through its
// lifecycle. They never block the operation and are returned to the caller.
type Notices []string

// Add appends msg, ignoring blanks and exact duplicates.
func (n *Notices) Add(msg string) {
	if msg == "" {
		return
	}
	for _, existing := range *n {
		if existing == msg {
			return
		}
	}
	*n = append(*n, msg)
}

// Extend appends every notice of other.
func (n *Notices) Extend(other Notices) {
	for _, msg := range other {
		n.Add(msg)
	}
}

// OrEmpty returns a non-nil slice so JSON renders [] instead of null.
func (n Notices) OrEmpty() []string {
	if n == nil {
		return []string{}
	}
	return n
}
