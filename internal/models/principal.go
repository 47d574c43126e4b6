package models

// Principal is an opaque authenticated identity handle. It is used both as
// an authorization subject (owner, service center) and as the attribution
// field on service records. No structure beyond equality is interpreted.
type Principal string

// Valid reports whether the principal is well-formed. Principals are opaque,
// so the only malformed handle is the empty one.
func (p Principal) Valid() bool {
	return p != ""
}

func (p Principal) String() string {
	return string(p)
}
