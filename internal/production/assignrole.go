package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/provision"
)

// RoleHandler grants the purchaser a role in a scope. Used for selling
// upgrades such as author or manager access.
//
// Handler parameters:
//
//	rolename  role to grant (required)
//	scope     where the role applies, defaults to "system"
type RoleHandler struct {
	Base
	directory provision.Directory
}

// NewRoleHandler creates the role grant handler.
func NewRoleHandler(directory provision.Directory) *RoleHandler {
	return &RoleHandler{directory: directory}
}

func (h *RoleHandler) Name() string { return "assignrole" }

// ProducePostpay grants the role and records one instance per unit so
// the grant stays auditable and revocable.
func (h *RoleHandler) ProducePostpay(ctx context.Context, pctx *Context) ([]domain.Product, *Feedback, error) {
	role := pctx.Params["rolename"]
	if role == "" {
		return nil, nil, domain.Invalid("production.assignrole",
			"item "+pctx.Item.ItemCode+" is missing the rolename parameter")
	}
	scope := pctx.Params["scope"]
	if scope == "" {
		scope = "system"
	}

	acct, err := findOrCreateAccount(ctx, h.directory, pctx.Customer)
	if err != nil {
		return nil, nil, err
	}
	if err := h.directory.AssignRole(ctx, acct.ID, role, scope); err != nil {
		return nil, nil, err
	}

	units := pctx.Item.Quantity * pctx.CatalogItem.UnitSize()
	now := time.Now().UTC()
	products := make([]domain.Product, 0, units)
	for i := 0; i < units; i++ {
		products = append(products, domain.Product{
			CustomerID:    pctx.Customer.ID,
			CatalogItemID: pctx.CatalogItem.ID,
			ItemCode:      pctx.Item.ItemCode,
			Reference:     "ROLE-" + strings.ToUpper(uuid.NewString()[:8]),
			Status:        domain.ProductStatusActive,
			StartDate:     now,
			ExtraData: map[string]string{
				"role":       role,
				"scope":      scope,
				"account_id": fmt.Sprintf("%d", acct.ID),
			},
		})
	}

	fb := &Feedback{
		Public:     fmt.Sprintf("The role %s is now active on the account %s.", role, acct.Username),
		SalesAdmin: fmt.Sprintf("Granted role %s in %s to account %s.", role, scope, acct.Username),
	}
	return products, fb, nil
}

// Validate checks the role item configuration.
func (h *RoleHandler) Validate(ctx context.Context, item *domain.CatalogItem, report *ValidationReport) {
	params := item.DecodedHandlerParams()
	if params["rolename"] == "" {
		report.AddError(item.Code, "assignrole requires a rolename parameter")
	}
	if params["scope"] == "" {
		report.AddMessage(item.Code, "no scope parameter, the role applies system wide")
	}
}
