package cev

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SOMET1010/montoitv6-sub000/internal/providers"
)

// RouterAuthorityClient submits bundles through the provider failover router.
type RouterAuthorityClient struct {
	router *providers.Router
}

func NewRouterAuthorityClient(router *providers.Router) *RouterAuthorityClient {
	return &RouterAuthorityClient{router: router}
}

func (c *RouterAuthorityClient) Submit(ctx context.Context, req *Request) (string, error) {
	bundle, err := json.Marshal(req.Documents)
	if err != nil {
		return "", fmt.Errorf("failed to encode document bundle: %w", err)
	}

	params := map[string]string{
		"request_id":  req.ID.String(),
		"lease_id":    req.LeaseID.String(),
		"landlord_id": req.LandlordID.String(),
		"tenant_id":   req.TenantID.String(),
		"fee":         req.Fee.String(),
	}
	if req.AuthorityReference != nil {
		params["reference_number"] = *req.AuthorityReference
	}

	resp, err := c.router.Dispatch(ctx, providers.CapabilityCertification, providers.Request{
		Operation: "submit",
		Params:    params,
		Payload:   bundle,
	})
	if err != nil {
		return "", err
	}

	reference := resp.Data["reference_number"]
	if reference == "" {
		return "", fmt.Errorf("certification authority returned no reference number")
	}
	return reference, nil
}
