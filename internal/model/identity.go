package model

// IdentityKind selects which column an identity-scoped query filters on.
type IdentityKind int

const (
	IdentityByUserID IdentityKind = iota + 1
	IdentityByEmail
)

// IdentityRef is a tagged reference to an identity: either a user id from the
// auth provider or a plain email address. Each tag maps to exactly one query
// shape in the repository layer.
type IdentityRef struct {
	Kind  IdentityKind
	Value string
}

func ByUserID(id string) IdentityRef {
	return IdentityRef{Kind: IdentityByUserID, Value: id}
}

func ByEmail(email string) IdentityRef {
	return IdentityRef{Kind: IdentityByEmail, Value: email}
}
