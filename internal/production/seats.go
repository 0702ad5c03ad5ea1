package production

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/provision"
)

// SeatsHandler delivers course seats. Each unit becomes one seat
// instance; seats start unassigned and are bound to attendees through
// AssignSeat, unless the item is configured to auto-assign the
// purchaser.
//
// Handler parameters:
//
//	rolename    role granted to the seat holder (required)
//	coursescsv  comma separated course references the holder joins
//	autoassign  "1" assigns every seat to the purchaser at production
//	validity    seat lifetime in days, 0 for unlimited
type SeatsHandler struct {
	Base
	directory provision.Directory
}

// NewSeatsHandler creates the seat generation handler.
func NewSeatsHandler(directory provision.Directory) *SeatsHandler {
	return &SeatsHandler{directory: directory}
}

func (h *SeatsHandler) Name() string { return "generateseats" }

// ProducePrepay recognizes the purchaser so the confirmation page can
// say whether seats will land on an existing account.
func (h *SeatsHandler) ProducePrepay(ctx context.Context, pctx *Context) (*Feedback, error) {
	acct, err := h.directory.FindByEmail(ctx, pctx.Customer.Email)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return &Feedback{
				Public:  "An account will be created for your seats when payment completes.",
				Private: fmt.Sprintf("No account found for %s, one will be created.", pctx.Customer.Email),
			}, nil
		}
		return nil, err
	}
	return &Feedback{
		Public:     fmt.Sprintf("Your seats will be delivered to the account %s.", acct.Username),
		SalesAdmin: fmt.Sprintf("Known account %s (id %d).", acct.Username, acct.ID),
	}, nil
}

// ProducePostpay creates one seat instance per delivered unit.
func (h *SeatsHandler) ProducePostpay(ctx context.Context, pctx *Context) ([]domain.Product, *Feedback, error) {
	acct, err := findOrCreateAccount(ctx, h.directory, pctx.Customer)
	if err != nil {
		return nil, nil, err
	}

	courses := splitCSV(pctx.Params["coursescsv"])
	role := pctx.Params["rolename"]
	if role == "" {
		return nil, nil, domain.Invalid("production.generateseats",
			"item "+pctx.Item.ItemCode+" is missing the rolename parameter")
	}

	units := pctx.Item.Quantity * pctx.CatalogItem.UnitSize()
	now := time.Now().UTC()
	endDate := seatEndDate(now, pctx.Params["validity"])

	autoAssign := pctx.Params["autoassign"] == "1"
	products := make([]domain.Product, 0, units)
	for i := 0; i < units; i++ {
		product := domain.Product{
			CustomerID:    pctx.Customer.ID,
			CatalogItemID: pctx.CatalogItem.ID,
			ItemCode:      pctx.Item.ItemCode,
			Reference:     seatReference(),
			Status:        domain.ProductStatusActive,
			StartDate:     now,
			EndDate:       endDate,
			ExtraData: map[string]string{
				"role":    role,
				"courses": strings.Join(courses, ","),
			},
		}
		if autoAssign {
			if err := h.AssignSeat(ctx, &product, acct.ID); err != nil {
				return nil, nil, err
			}
		}
		products = append(products, product)
	}

	fb := &Feedback{
		Public:     fmt.Sprintf("%d seat(s) are ready on the account %s.", units, acct.Username),
		Private:    fmt.Sprintf("Seats delivered: %d, role %s.", units, role),
		SalesAdmin: fmt.Sprintf("Produced %d seat(s) for account %s.", units, acct.Username),
	}
	return products, fb, nil
}

// AssignSeat enrols the account in the seat's courses and records the
// holder on the instance.
func (h *SeatsHandler) AssignSeat(ctx context.Context, product *domain.Product, accountID int64) error {
	if holder := product.ExtraData["account_id"]; holder != "" {
		return domain.Conflict("production.assignseat",
			"seat "+product.Reference+" is already assigned")
	}
	role := product.ExtraData["role"]
	for _, course := range splitCSV(product.ExtraData["courses"]) {
		if err := h.directory.Enrol(ctx, accountID, course, role); err != nil {
			return err
		}
	}
	if product.ExtraData == nil {
		product.ExtraData = make(map[string]string)
	}
	product.ExtraData["account_id"] = strconv.FormatInt(accountID, 10)
	return nil
}

// ReleaseSeat unenrols the current holder and frees the instance.
func (h *SeatsHandler) ReleaseSeat(ctx context.Context, product *domain.Product) error {
	holder := product.ExtraData["account_id"]
	if holder == "" {
		return domain.Conflict("production.releaseseat",
			"seat "+product.Reference+" is not assigned")
	}
	accountID, err := strconv.ParseInt(holder, 10, 64)
	if err != nil {
		return domain.Invalid("production.releaseseat", "seat holder reference is corrupt")
	}
	for _, course := range splitCSV(product.ExtraData["courses"]) {
		if err := h.directory.Unenrol(ctx, accountID, course); err != nil {
			return err
		}
	}
	delete(product.ExtraData, "account_id")
	return nil
}

// Validate checks the seat item configuration.
func (h *SeatsHandler) Validate(ctx context.Context, item *domain.CatalogItem, report *ValidationReport) {
	params := item.DecodedHandlerParams()
	if params["rolename"] == "" {
		report.AddError(item.Code, "generateseats requires a rolename parameter")
	}
	if params["coursescsv"] == "" {
		report.AddWarning(item.Code, "no coursescsv parameter, seats will not enrol anywhere")
	}
	if v := params["validity"]; v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			report.AddError(item.Code, "validity must be a number of days")
		}
	}
	report.AddMessage(item.Code, "delivers "+strconv.Itoa(item.UnitSize())+" seat(s) per unit")
}

func seatReference() string {
	return "SEAT-" + strings.ToUpper(uuid.NewString()[:8])
}

func seatEndDate(start time.Time, validity string) time.Time {
	days, err := strconv.Atoi(validity)
	if err != nil || days <= 0 {
		return time.Time{}
	}
	return start.AddDate(0, 0, days)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// findOrCreateAccount resolves the purchaser's account, creating one
// from the billing form when none exists.
func findOrCreateAccount(ctx context.Context, directory provision.Directory, customer *domain.Customer) (*provision.Account, error) {
	acct, err := directory.FindByEmail(ctx, customer.Email)
	if err == nil {
		return acct, nil
	}
	if !domain.IsCode(err, domain.ENOTFOUND) {
		return nil, err
	}
	return directory.CreateAccount(ctx, &provision.Account{
		Username:  usernameFromEmail(customer.Email),
		Email:     customer.Email,
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
	})
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(local)
}
