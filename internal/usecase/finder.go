package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/scoutlabs/mailscout/internal/domain"
	"github.com/scoutlabs/mailscout/internal/mx"
	"github.com/scoutlabs/mailscout/internal/pattern"
)

// MaxBulkNames caps one bulk request.
const MaxBulkNames = 100

// DomainVerifier is the subset of the MX resolver the finder needs.
// Defined here (point of use) so tests can inject a fake.
type DomainVerifier interface {
	Verify(ctx context.Context, rawDomain string) (*domain.DomainVerification, error)
}

type FinderUsecase struct {
	resolver DomainVerifier
}

func NewFinderUsecase(resolver DomainVerifier) *FinderUsecase {
	return &FinderUsecase{resolver: resolver}
}

type FindEmailResult struct {
	Domain       string
	AcceptsEmail bool
	Person       domain.Person
	Candidates   []domain.EmailCandidate
}

// FindEmail verifies the domain accepts mail, then synthesizes scored
// candidates for the person. The quota check has already happened upstream.
func (u *FinderUsecase) FindEmail(ctx context.Context, person domain.Person, rawDomain string) (*FindEmailResult, error) {
	first := strings.TrimSpace(person.FirstName)
	last := strings.TrimSpace(person.LastName)
	if first == "" || last == "" {
		return nil, fmt.Errorf("%w: first_name and last_name are required", domain.ErrInvalidInput)
	}

	v, err := u.resolver.Verify(ctx, rawDomain)
	if err != nil {
		return nil, fmt.Errorf("verify domain: %w", err)
	}

	return &FindEmailResult{
		Domain:       v.Domain,
		AcceptsEmail: v.HasMX,
		Person:       domain.Person{FirstName: first, LastName: last},
		Candidates:   pattern.Generate(first, last, v.Domain),
	}, nil
}

type DomainReport struct {
	Verification *domain.DomainVerification
	Provider     string
}

// VerifyDomain reports MX configuration for a domain. A domain with no MX is
// a legitimate negative result, not an error.
func (u *FinderUsecase) VerifyDomain(ctx context.Context, rawDomain string) (*DomainReport, error) {
	v, err := u.resolver.Verify(ctx, rawDomain)
	if err != nil {
		return nil, fmt.Errorf("verify domain: %w", err)
	}
	return &DomainReport{Verification: v, Provider: mx.Provider(v)}, nil
}

type PatternsResult struct {
	Domain       string
	AcceptsEmail bool
	Patterns     []pattern.Listing
}

// ListPatterns returns the pattern catalogue rendered for a domain, plus
// whether the domain accepts mail at all.
func (u *FinderUsecase) ListPatterns(ctx context.Context, rawDomain string) (*PatternsResult, error) {
	v, err := u.resolver.Verify(ctx, rawDomain)
	if err != nil {
		return nil, fmt.Errorf("verify domain: %w", err)
	}
	return &PatternsResult{
		Domain:       v.Domain,
		AcceptsEmail: v.HasMX,
		Patterns:     pattern.List(v.Domain),
	}, nil
}

type BulkResult struct {
	Domain       string
	AcceptsEmail bool
	Results      []domain.PersonResult
}

// BulkFind runs pattern generation for up to MaxBulkNames people against one
// domain, verifying MX exactly once for the whole batch. A person whose names
// normalize to nothing gets an empty candidate list; the batch continues.
func (u *FinderUsecase) BulkFind(ctx context.Context, rawDomain string, people []domain.Person) (*BulkResult, error) {
	if len(people) == 0 {
		return nil, fmt.Errorf("%w: names list must not be empty", domain.ErrInvalidInput)
	}
	if len(people) > MaxBulkNames {
		return nil, fmt.Errorf("%w: maximum %d names per bulk request", domain.ErrInvalidInput, MaxBulkNames)
	}

	v, err := u.resolver.Verify(ctx, rawDomain)
	if err != nil {
		return nil, fmt.Errorf("verify domain: %w", err)
	}

	results := make([]domain.PersonResult, 0, len(people))
	for _, p := range people {
		results = append(results, domain.PersonResult{
			Person:     p,
			Candidates: pattern.Generate(p.FirstName, p.LastName, v.Domain),
		})
	}

	return &BulkResult{
		Domain:       v.Domain,
		AcceptsEmail: v.HasMX,
		Results:      results,
	}, nil
}
