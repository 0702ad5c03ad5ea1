package api

import (
	"time"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/production"
	"github.com/verzog/merchant/internal/service"
)

// billDTO is the wire shape of a bill.
type billDTO struct {
	TransactionID       string        `json:"transaction_id"`
	OnlineTransactionID string        `json:"online_transaction_id,omitempty"`
	IDNumber            string        `json:"id_number,omitempty"`
	Status              string        `json:"status"`
	Gateway             string        `json:"gateway"`
	Currency            string        `json:"currency"`
	Country             string        `json:"country"`
	Zip                 string        `json:"zip"`
	UntaxedAmount       float64       `json:"untaxed_amount"`
	TaxAmount           float64       `json:"tax_amount"`
	ShippingAmount      float64       `json:"shipping_amount"`
	DiscountAmount      float64       `json:"discount_amount"`
	Amount              float64       `json:"amount"`
	PaidAmount          float64       `json:"paid_amount"`
	PaymentFee          float64       `json:"payment_fee"`
	Items               []billItemDTO `json:"items"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

type billItemDTO struct {
	Type            string  `json:"type"`
	ItemCode        string  `json:"item_code"`
	Label           string  `json:"label"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	TotalPrice      float64 `json:"total_price"`
	TaxAmount       float64 `json:"tax_amount"`
	Produced        bool    `json:"produced"`
	ProductionError string  `json:"production_error,omitempty"`
}

func billResponse(bill *domain.Bill) billDTO {
	dto := billDTO{
		TransactionID:       bill.TransactionID,
		OnlineTransactionID: bill.OnlineTransactionID,
		IDNumber:            bill.IDNumber,
		Status:              string(bill.Status),
		Gateway:             bill.Gateway,
		Currency:            bill.Currency,
		Country:             bill.Country,
		Zip:                 bill.Zip,
		UntaxedAmount:       bill.UntaxedAmount,
		TaxAmount:           bill.TaxAmount,
		ShippingAmount:      bill.ShippingAmount,
		DiscountAmount:      bill.DiscountAmount,
		Amount:              bill.Amount,
		PaidAmount:          bill.PaidAmount,
		PaymentFee:          bill.PaymentFee,
		Items:               make([]billItemDTO, 0, len(bill.Items)),
		CreatedAt:           bill.CreatedAt,
		UpdatedAt:           bill.UpdatedAt,
	}
	for _, item := range bill.Items {
		dto.Items = append(dto.Items, billItemDTO{
			Type:            string(item.Type),
			ItemCode:        item.ItemCode,
			Label:           item.Label,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			TotalPrice:      item.TotalPrice,
			TaxAmount:       item.TaxAmount,
			Produced:        item.Produced,
			ProductionError: item.ProductionError,
		})
	}
	return dto
}

type feedbackDTO struct {
	ItemCode string `json:"item_code"`
	Public   string `json:"public,omitempty"`
	Private  string `json:"private,omitempty"`
}

type checkoutDTO struct {
	Bill     billDTO       `json:"bill"`
	Feedback []feedbackDTO `json:"feedback,omitempty"`
}

func checkoutResponse(result *service.CheckoutResult) checkoutDTO {
	dto := checkoutDTO{Bill: billResponse(result.Bill)}
	for _, fb := range result.Feedback {
		dto.Feedback = append(dto.Feedback, feedbackDTO{
			ItemCode: fb.ItemCode,
			Public:   fb.Feedback.Public,
			Private:  fb.Feedback.Private,
		})
	}
	return dto
}

type productDTO struct {
	ID        int64             `json:"id"`
	ItemCode  string            `json:"item_code"`
	Reference string            `json:"reference"`
	Status    string            `json:"status"`
	StartDate *time.Time        `json:"start_date,omitempty"`
	EndDate   *time.Time        `json:"end_date,omitempty"`
	ExtraData map[string]string `json:"extra_data,omitempty"`
}

func productResponse(product *domain.Product) productDTO {
	dto := productDTO{
		ID:        product.ID,
		ItemCode:  product.ItemCode,
		Reference: product.Reference,
		Status:    string(product.Status),
		ExtraData: product.ExtraData,
	}
	if !product.StartDate.IsZero() {
		start := product.StartDate
		dto.StartDate = &start
	}
	if !product.EndDate.IsZero() {
		end := product.EndDate
		dto.EndDate = &end
	}
	return dto
}

type validationDTO struct {
	Errors   map[string][]string `json:"errors,omitempty"`
	Warnings map[string][]string `json:"warnings,omitempty"`
	Messages map[string][]string `json:"messages,omitempty"`
	OK       bool                `json:"ok"`
}

func validationResponse(report *production.ValidationReport) validationDTO {
	return validationDTO{
		Errors:   report.Errors,
		Warnings: report.Warnings,
		Messages: report.Messages,
		OK:       !report.HasErrors(),
	}
}
