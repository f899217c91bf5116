package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"docket/internal/consumer"
	jwttoken "docket/internal/jwt_token"
	"docket/internal/platform/middleware"
	"docket/internal/tenant"
	"docket/internal/workqueue"
)

// tenantResolverAdapter narrows the tenant resolver to what the boundary
// middleware needs.
type tenantResolverAdapter struct {
	resolver *tenant.Resolver
}

func (a tenantResolverAdapter) ResolveBySecret(ctx context.Context, secret string) (middleware.TenantIdentity, error) {
	t, err := a.resolver.ResolveBySecret(ctx, secret)
	if err != nil {
		return middleware.TenantIdentity{}, err
	}
	return middleware.TenantIdentity{ID: t.ID.String(), Name: t.Name}, nil
}

// adminValidatorAdapter narrows the JWT service to the middleware interface.
type adminValidatorAdapter struct {
	svc *jwttoken.Service
}

func (a adminValidatorAdapter) ValidateToken(tokenString string) (string, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Operator, nil
}

// erpForwarder processes claimed work items by posting their request payload
// to the owning tenant's ERP endpoint.
type erpForwarder struct {
	tenants *tenant.InMemoryStore
	client  *http.Client
}

func newERPForwarder(tenants *tenant.InMemoryStore) *erpForwarder {
	return &erpForwarder{
		tenants: tenants,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *erpForwarder) Process(ctx context.Context, item *workqueue.WorkItem) (consumer.Result, error) {
	tenantID, err := uuid.Parse(item.TenantID)
	if err != nil {
		return consumer.Result{}, fmt.Errorf("malformed tenant id %q: %w", item.TenantID, err)
	}
	t, err := f.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return consumer.Result{}, fmt.Errorf("unknown tenant %s: %w", item.TenantID, err)
	}
	if t.Endpoint == "" {
		return consumer.Result{}, errors.New("tenant has no ERP endpoint configured")
	}

	body := item.Request
	if body == "" {
		body = item.RawBody
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader([]byte(body)))
	if err != nil {
		return consumer.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return consumer.Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return consumer.Result{}, fmt.Errorf("erp returned status %d", resp.StatusCode)
	}

	var out struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// A 2xx without a usable body still counts as delivered.
		return consumer.Result{Description: "delivered"}, nil
	}
	return consumer.Result{TargetID: out.ID, Description: "delivered"}, nil
}
