package verification

import (
	"context"
	"fmt"

	"github.com/SOMET1010/montoitv6-sub000/internal/providers"
)

// RouterIdentityRegistry resolves national-ID checks through the provider
// failover router so a registry outage degrades to the next provider instead
// of blocking the pipeline.
type RouterIdentityRegistry struct {
	router *providers.Router
}

func NewRouterIdentityRegistry(router *providers.Router) *RouterIdentityRegistry {
	return &RouterIdentityRegistry{router: router}
}

func (r *RouterIdentityRegistry) Verify(ctx context.Context, fullName, documentNumber, dateOfBirth string) (*RegistryResult, error) {
	resp, err := r.router.Dispatch(ctx, providers.CapabilityIdentityRegistry, providers.Request{
		Operation: "verify",
		Params: map[string]string{
			"full_name":       fullName,
			"document_number": documentNumber,
			"date_of_birth":   dateOfBirth,
		},
	})
	if err != nil {
		return nil, err
	}
	return &RegistryResult{
		Verified:        resp.Data["verified"] == "true",
		ReferenceNumber: resp.Data["reference_number"],
	}, nil
}

// RouterHealthRegistry resolves insurance-membership checks through the
// failover router.
type RouterHealthRegistry struct {
	router *providers.Router
}

func NewRouterHealthRegistry(router *providers.Router) *RouterHealthRegistry {
	return &RouterHealthRegistry{router: router}
}

func (r *RouterHealthRegistry) Verify(ctx context.Context, fullName, memberNumber string) (bool, error) {
	resp, err := r.router.Dispatch(ctx, providers.CapabilityHealthRegistry, providers.Request{
		Operation: "verify",
		Params: map[string]string{
			"full_name":     fullName,
			"member_number": memberNumber,
		},
	})
	if err != nil {
		return false, fmt.Errorf("health registry dispatch failed: %w", err)
	}
	return resp.Data["verified"] == "true", nil
}
