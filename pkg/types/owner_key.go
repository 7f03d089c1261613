package types

import "strings"

// OwnerKind distinguishes anonymous session carts from authenticated user carts.
type OwnerKind string

const (
	OwnerSession OwnerKind = "session"
	OwnerUser    OwnerKind = "user"
)

// OwnerKey is the identity a cart is persisted under. A cart has exactly one
// active owner key at a time; both appear together only inside the migrate call.
type OwnerKey struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

func SessionOwner(id string) OwnerKey {
	return OwnerKey{Kind: OwnerSession, ID: id}
}

func UserOwner(id string) OwnerKey {
	return OwnerKey{Kind: OwnerUser, ID: id}
}

func (k OwnerKey) IsZero() bool {
	return k.Kind == "" && k.ID == ""
}

func (k OwnerKey) IsUser() bool {
	return k.Kind == OwnerUser
}

// String renders the key in kind:id form, suitable for log fields and
// storage key namespacing.
func (k OwnerKey) String() string {
	return strings.Join([]string{string(k.Kind), k.ID}, ":")
}
