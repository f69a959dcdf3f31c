package decision

import (
	"context"

	"opagate/internal/domain"
)

// DefaultTenant is used when a predicate is called without a tenant.
const DefaultTenant = "tenant1"

// KSeF actions understood by the policy.
const (
	ActionViewPurchaseInvoices = "view_invoices_purchase"
	ActionViewSalesInvoices    = "view_invoices_sales"
	ActionExportToSymfonia     = "export_to_symfonia"
)

// Permissions is the set of KSeF capabilities of one user in one tenant.
type Permissions struct {
	User                 string `json:"user"`
	Tenant               string `json:"tenant"`
	ViewPurchaseInvoices bool   `json:"view_invoices_purchase"`
	ViewSalesInvoices    bool   `json:"view_invoices_sales"`
	ExportToSymfonia     bool   `json:"export_to_symfonia"`
}

// CanViewPurchaseInvoices reports whether user may list purchase invoices.
func (c *Client) CanViewPurchaseInvoices(ctx context.Context, user, tenant string) bool {
	return c.can(ctx, user, tenant, ActionViewPurchaseInvoices)
}

// CanViewSalesInvoices reports whether user may list sales invoices.
func (c *Client) CanViewSalesInvoices(ctx context.Context, user, tenant string) bool {
	return c.can(ctx, user, tenant, ActionViewSalesInvoices)
}

// CanExportToSymfonia reports whether user may export invoices to Symfonia.
func (c *Client) CanExportToSymfonia(ctx context.Context, user, tenant string) bool {
	return c.can(ctx, user, tenant, ActionExportToSymfonia)
}

// Permissions evaluates every KSeF predicate for user.
func (c *Client) Permissions(ctx context.Context, user, tenant string) Permissions {
	if tenant == "" {
		tenant = DefaultTenant
	}
	return Permissions{
		User:                 user,
		Tenant:               tenant,
		ViewPurchaseInvoices: c.CanViewPurchaseInvoices(ctx, user, tenant),
		ViewSalesInvoices:    c.CanViewSalesInvoices(ctx, user, tenant),
		ExportToSymfonia:     c.CanExportToSymfonia(ctx, user, tenant),
	}
}

func (c *Client) can(ctx context.Context, user, tenant, action string) bool {
	if tenant == "" {
		tenant = DefaultTenant
	}
	return c.Check(ctx, domain.DecisionInput{User: user, Tenant: tenant, Action: action}).Allow
}
