// Package reconcile ingests externally authored student and domain rows,
// resolves them against canonical records and reports a per-row outcome.
// A failing row never aborts the batch.
package reconcile

import (
	"context"

	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// Catalog serves the canonical domain and branch lists.
type Catalog interface {
	Domains(ctx context.Context, activeOnly bool) ([]models.Domain, error)
	Branches(ctx context.Context) ([]models.Branch, error)
}

// RowOutcome is the result of one input line.
type RowOutcome struct {
	Line   int    `json:"line"`
	Key    string `json:"key"`
	Reason string `json:"reason,omitempty"`
	// Unresolved lists the domain names that had no exact match.
	Unresolved []Unresolved `json:"unresolved,omitempty"`
}

type RegistrationResult struct {
	Created []RowOutcome `json:"created"`
	Skipped []RowOutcome `json:"skipped"`
	Failed  []RowOutcome `json:"failed"`
}

type DomainResult struct {
	Updated           []RowOutcome `json:"updated"`
	AlreadyRegistered []RowOutcome `json:"already_registered"`
	Failed            []RowOutcome `json:"failed"`
	UserNotFound      []RowOutcome `json:"user_not_found"`
}

// Reconciler runs the bulk pipelines against a record store.
type Reconciler struct {
	store        storage.Store
	catalog      Catalog
	passwordCost int
}

type Option func(*Reconciler)

// WithPasswordCost sets the bcrypt cost for initial passwords.
func WithPasswordCost(cost int) Option {
	return func(r *Reconciler) { r.passwordCost = cost }
}

func New(store storage.Store, catalog Catalog, opts ...Option) *Reconciler {
	r := &Reconciler{store: store, catalog: catalog, passwordCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
