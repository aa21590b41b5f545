package cart

import (
	"errors"
	"time"
)

var (
	// ErrInvalidQuantity rejects additions with a quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrProductNotFound rejects additions that reference a missing or
	// inactive product.
	ErrProductNotFound = errors.New("product not found")
)

// StorageError marks a persistence failure so callers can tell it apart
// from input errors. The underlying error stays on the chain.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// Identity names the owner of a cart: an authenticated user id or an
// anonymous session token, never both. A zero Identity is an anonymous
// visitor without a token yet.
type Identity struct {
	UserID string
	Token  string
}

func Authenticated(userID string) Identity {
	return Identity{UserID: userID}
}

func Anonymous(token string) Identity {
	return Identity{Token: token}
}

func (id Identity) IsAuthenticated() bool {
	return id.UserID != ""
}

type Cart struct {
	ID        string    `json:"id" db:"cart_id"`
	UserID    *string   `json:"-" db:"user_id"`
	Token     *string   `json:"-" db:"token"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	Lines     []Line    `json:"lines" db:"-"`
}

// NewToken is set when resolving an anonymous identity minted a fresh
// session token. The web layer must persist it in the caller's session.
func (c Cart) NewToken() (string, bool) {
	if c.Token == nil {
		return "", false
	}
	return *c.Token, true
}

type Line struct {
	ID         string    `json:"id" db:"line_id"`
	CartID     string    `json:"-" db:"cart_id"`
	ProductID  string    `json:"productId" db:"product_id"`
	Variant    Variant   `json:"variant" db:"variant"`
	VariantKey string    `json:"-" db:"variant_key"`
	Quantity   int       `json:"quantity" db:"quantity"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

type LineNew struct {
	ProductID string            `json:"productId" validate:"required,uuid"`
	Quantity  int               `json:"quantity"`
	Variant   map[string]string `json:"variant"`
}

type LineUp struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}
