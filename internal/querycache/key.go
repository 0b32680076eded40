// Package querycache implements the keyed query cache that sits between the
// HTTP layer and the repositories: cached results are identified by
// (family, operation, params-fingerprint) tuples, refreshed with a
// stale-while-revalidate policy, de-duplicated while in flight, retried with
// exponential backoff on transient failures, and invalidated by prefix
// patterns after mutations or realtime change notifications.
//
// The cache is an injectable instance (see New); tests and the realtime
// reconciler operate on isolated instances rather than a package global.
package querycache

import (
	"encoding/json"
	"fmt"
)

// Family is the entity family a cached query belongs to. Invalidation
// patterns address whole families (or single operations within one).
type Family string

// Entity families known to the cache. These mirror the store tables the
// data access layer queries.
const (
	FamilyInventory Family = "inventory"
	FamilyCatalog   Family = "catalog"
	FamilyCustomers Family = "customers"
	FamilySales     Family = "sales"
	FamilyCashBox   Family = "cashbox"
	FamilyCampaigns Family = "campaigns"
	FamilyReports   Family = "reports"
)

// Key identifies one cached query result. Two parameter sets that are
// structurally equal (same key/value pairs, any order, any object identity)
// always produce the same Key; see Fingerprint.
type Key struct {
	Family      Family
	Op          string
	Fingerprint string
}

// NewKey builds a Key for the given family, operation, and parameters.
// Params may be nil for parameterless queries.
func NewKey(family Family, op string, params any) (Key, error) {
	fp, err := Fingerprint(params)
	if err != nil {
		return Key{}, fmt.Errorf("fingerprint %s/%s: %w", family, op, err)
	}
	return Key{Family: family, Op: op, Fingerprint: fp}, nil
}

// MustKey is NewKey for params known to be marshalable (closed filter
// structs). It panics on fingerprint failure, which indicates a programmer
// error, not an expected runtime condition.
func MustKey(family Family, op string, params any) Key {
	k, err := NewKey(family, op, params)
	if err != nil {
		panic(err)
	}
	return k
}

// String renders the key in "family/op/fingerprint" form, used as the
// internal map key and in log lines.
func (k Key) String() string {
	return string(k.Family) + "/" + k.Op + "/" + k.Fingerprint
}

// Fingerprint produces a canonical, order-independent rendering of params.
//
// The value is marshaled to JSON, decoded into generic maps/slices, and
// re-marshaled: encoding/json emits map keys in sorted order, so two
// structurally equal parameter objects fingerprint identically regardless of
// field declaration order or object identity. nil params fingerprint to "".
func Fingerprint(params any) (string, error) {
	if params == nil {
		return "", nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(canonical), nil
}

// Pattern is a key prefix used for invalidation. A zero Op matches every
// operation in the family; a zero Fingerprint matches every parameter set of
// the operation.
type Pattern struct {
	Family      Family
	Op          string
	Fingerprint string
}

// Matches reports whether key falls under the pattern prefix.
func (p Pattern) Matches(k Key) bool {
	if p.Family != k.Family {
		return false
	}
	if p.Op != "" && p.Op != k.Op {
		return false
	}
	if p.Fingerprint != "" && p.Fingerprint != k.Fingerprint {
		return false
	}
	return true
}

// FamilyPattern invalidates every query in a family.
func FamilyPattern(f Family) Pattern { return Pattern{Family: f} }

// OpPattern invalidates every parameter variant of one operation.
func OpPattern(f Family, op string) Pattern { return Pattern{Family: f, Op: op} }
