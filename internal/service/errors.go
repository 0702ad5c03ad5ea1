package service

import (
	"github.com/verzog/merchant/internal/domain"
)

// Bill errors
var (
	ErrEmptyCart       = domain.Errorf(domain.EINVALID, "", "Cart is empty")
	ErrInvalidQuantity = domain.Errorf(domain.EINVALID, "", "Quantity must be greater than 0")
	ErrQuantityCapped  = domain.Errorf(domain.EINVALID, "", "Quantity exceeds the item's delivery cap")
	ErrNotEligible     = domain.Errorf(domain.EFORBIDDEN, "", "Item is not available to this customer")
)

// Product lifecycle errors
var (
	ErrProductNotDeleted = domain.Errorf(domain.EINVALID, "", "Product is not soft deleted")
	ErrProductDeleted    = domain.Errorf(domain.EGONE, "", "Product has been deleted")
)
