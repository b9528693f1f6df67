package dto

import "time"

// CalculateTotalRequest recomputes and persists an order's totals before
// settlement.
type CalculateTotalRequest struct {
	Discount float64 `json:"discount"`
}

// TotalsResponse is the monetary breakdown returned by total calculation.
type TotalsResponse struct {
	TotalAmount    float64 `json:"total_amount"`
	Discount       float64 `json:"discount"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}

// PayRequest settles an order.
type PayRequest struct {
	PaymentMethod string  `json:"payment_method"`
	PaidAmount    float64 `json:"paid_amount"`
	CashierID     *int64  `json:"cashier_id,omitempty"`
}

// CancelRequest voids an order.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// InvoiceLine is one printable invoice row.
type InvoiceLine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

// Invoice is the print payload for a settled or open order.
type Invoice struct {
	InvoiceNumber  string        `json:"invoice_number"`
	Date           time.Time     `json:"date"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	TableNumber    int           `json:"table_number"`
	Server         string        `json:"server"`
	Cashier        string        `json:"cashier"`
	Items          []InvoiceLine `json:"items"`
	TotalAmount    float64       `json:"total_amount"`
	Discount       float64       `json:"discount"`
	DiscountAmount float64       `json:"discount_amount"`
	FinalAmount    float64       `json:"final_amount"`
	PaymentMethod  string        `json:"payment_method,omitempty"`
	PaidAmount     float64       `json:"paid_amount"`
	Change         float64       `json:"change"`
}

// DailySales aggregates settled orders for one calendar day.
type DailySales struct {
	Date        time.Time       `json:"date"`
	TotalOrders int             `json:"total_orders"`
	TotalSales  float64         `json:"total_sales"`
	Orders      []OrderResponse `json:"orders"`
}
