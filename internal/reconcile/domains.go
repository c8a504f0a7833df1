package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"internship-portal/internal/logging"
	"internship-portal/internal/models"
	"internship-portal/internal/storage"

	"github.com/google/uuid"
)

// ReconcileDomains replaces each listed student's preferred domains. A row is
// applied only if every listed name resolves exactly; near misses come back
// as suggestions for the operator.
func (r *Reconciler) ReconcileDomains(ctx context.Context, rows []RawRow) (*DomainResult, error) {
	domains, err := r.catalog.Domains(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load domains: %w", err)
	}
	branches, err := r.catalog.Branches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load branches: %w", err)
	}

	result := &DomainResult{
		Updated:           []RowOutcome{},
		AlreadyRegistered: []RowOutcome{},
		Failed:            []RowOutcome{},
		UserNotFound:      []RowOutcome{},
	}
	logger := logging.WithFields(ctx, "pipeline", "domains", "rows", len(rows))
	logger.Info("Domain reconciliation started", "domains", len(domains), "branches", len(branches))

	everyDomain := NewMatcher(domains)
	matchers := make(map[uuid.UUID]*Matcher)
	matcherFor := func(branchID *uuid.UUID) *Matcher {
		var key uuid.UUID
		if branchID != nil {
			key = *branchID
		}
		if m, ok := matchers[key]; ok {
			return m
		}
		var applicable []models.Domain
		for _, d := range domains {
			if branchID == nil || d.AppliesTo(*branchID) {
				applicable = append(applicable, d)
			}
		}
		m := NewMatcher(applicable)
		matchers[key] = m
		return m
	}

	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		line := i + 1
		row, problems := ParseDomainRow(line, raw)
		if len(problems) > 0 {
			result.Failed = append(result.Failed, RowOutcome{Line: line, Key: row.Email, Reason: strings.Join(problems, "; ")})
			continue
		}

		student, err := r.store.Repos().Students.GetByEmail(ctx, row.Email)
		if errors.Is(err, storage.ErrNotFound) {
			result.UserNotFound = append(result.UserNotFound, RowOutcome{Line: line, Key: row.Email, Reason: "no student with this email"})
			continue
		}
		if err != nil {
			logger.Error("Student lookup failed", "line", line, "error", err)
			result.Failed = append(result.Failed, RowOutcome{Line: line, Key: row.Email, Reason: "lookup failed"})
			continue
		}

		branchID, err := resolveBranchByName(student, row.BranchName, branches)
		if err != nil {
			result.Failed = append(result.Failed, RowOutcome{Line: line, Key: row.Email, Reason: err.Error()})
			continue
		}

		matcher := matcherFor(branchID)
		var resolved []uuid.UUID
		var unresolved []Unresolved
		seen := make(map[uuid.UUID]bool)
		for _, name := range row.DomainNames {
			d, miss := matcher.Resolve(name)
			if miss != nil {
				if _, ok := everyDomain.Exact(name); ok && branchID != nil {
					miss = &Unresolved{Input: name, NotOfferedTo: branchName(*branchID, branches)}
				}
				unresolved = append(unresolved, *miss)
				continue
			}
			if !seen[d.ID] {
				seen[d.ID] = true
				resolved = append(resolved, d.ID)
			}
		}
		if len(unresolved) > 0 {
			result.Failed = append(result.Failed, RowOutcome{
				Line:       line,
				Key:        row.Email,
				Reason:     describeUnresolved(unresolved),
				Unresolved: unresolved,
			})
			continue
		}

		if sameSet(resolved, student.PreferredDomains) {
			result.AlreadyRegistered = append(result.AlreadyRegistered, RowOutcome{Line: line, Key: row.Email})
			continue
		}

		if err := r.applyDomains(ctx, student.ID, row, branchID, resolved); err != nil {
			logger.Warn("Domain row failed", "line", line, "email", row.Email, "error", err)
			result.Failed = append(result.Failed, RowOutcome{Line: line, Key: row.Email, Reason: err.Error()})
			continue
		}
		result.Updated = append(result.Updated, RowOutcome{Line: line, Key: row.Email})
	}

	logger.Info("Domain reconciliation finished",
		"updated", len(result.Updated), "already_registered", len(result.AlreadyRegistered),
		"failed", len(result.Failed), "user_not_found", len(result.UserNotFound))
	return result, nil
}

func (r *Reconciler) applyDomains(ctx context.Context, studentID uuid.UUID, row DomainRow, branchID *uuid.UUID, domainIDs []uuid.UUID) error {
	return r.store.RunInTx(ctx, func(tx storage.Repositories) error {
		student, err := tx.Students.GetByIDForUpdate(ctx, studentID)
		if err != nil {
			return fmt.Errorf("failed to reload student: %w", err)
		}
		student.PreferredDomains = domainIDs
		student.Participating = row.Participating
		if row.ExpectedSalary != nil {
			student.ExpectedSalary = row.ExpectedSalary
		}
		if branchID != nil {
			student.BranchID = branchID
		}
		if err := tx.Students.Update(ctx, student); err != nil {
			return fmt.Errorf("failed to update student: %w", err)
		}
		return nil
	})
}

func sameBranchName(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), ""), strings.Join(strings.Fields(b), ""))
}

// resolveBranchByName prefers the student's stored branch when its name
// matches and otherwise scans every branch. An empty name keeps the stored branch.
func resolveBranchByName(student *models.Student, name string, branches []models.Branch) (*uuid.UUID, error) {
	if name == "" {
		return student.BranchID, nil
	}
	if student.BranchID != nil {
		for _, b := range branches {
			if b.ID == *student.BranchID && (sameBranchName(b.Name, name) || sameBranchName(b.Code, name)) {
				id := b.ID
				return &id, nil
			}
		}
	}
	for _, b := range branches {
		if sameBranchName(b.Name, name) || sameBranchName(b.Code, name) {
			id := b.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("branch %q not found", name)
}

func branchName(id uuid.UUID, branches []models.Branch) string {
	for _, b := range branches {
		if b.ID == id {
			return b.Name
		}
	}
	return id.String()
}

func describeUnresolved(misses []Unresolved) string {
	parts := make([]string, 0, len(misses))
	for _, m := range misses {
		switch {
		case m.NotOfferedTo != "":
			parts = append(parts, fmt.Sprintf("%q is not offered to branch %q", m.Input, m.NotOfferedTo))
		case m.Suggestion != "":
			parts = append(parts, fmt.Sprintf("%q not found, did you mean %q?", m.Input, m.Suggestion))
		default:
			parts = append(parts, fmt.Sprintf("%q not found", m.Input))
		}
	}
	return strings.Join(parts, "; ")
}

func sameSet(a, b []uuid.UUID) bool {
	set := make(map[uuid.UUID]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	other := make(map[uuid.UUID]bool, len(b))
	for _, id := range b {
		if !set[id] {
			return false
		}
		other[id] = true
	}
	return len(set) == len(other)
}
