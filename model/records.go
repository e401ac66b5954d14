package model

import "time"

// Identifiable records carry an id that is unique within their collection
type Identifiable interface {
	RecordID() int64
}

type QuotationStatus string

const (
	QuotationDraft    QuotationStatus = "DRAFT"
	QuotationSent     QuotationStatus = "SENT"
	QuotationAccepted QuotationStatus = "ACCEPTED"
	QuotationRejected QuotationStatus = "REJECTED"
)

type ReceiptStatus string

const (
	ReceiptPaid      ReceiptStatus = "PAID"
	ReceiptPending   ReceiptStatus = "PENDING"
	ReceiptCancelled ReceiptStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentCheck        PaymentMethod = "CHECK"
)

type Client struct {
	ID        int64     `json:"id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address,omitempty"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Client) RecordID() int64 { return c.ID }

// LineItem is a row of a quotation or receipt. Total is computed by the server.
type LineItem struct {
	ID          int64  `json:"id,omitempty"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Amount `json:"unit_price"`
	Total       Amount `json:"total,omitempty"`
}

type Quotation struct {
	ID              int64           `json:"id,omitempty"`
	QuotationNumber string          `json:"quotation_number,omitempty"`
	Client          int64           `json:"client"`
	ClientName      string          `json:"client_name,omitempty"`
	ClientEmail     string          `json:"client_email,omitempty"`
	Date            string          `json:"date,omitempty"`
	ValidUntil      string          `json:"valid_until"`
	Status          QuotationStatus `json:"status,omitempty"`
	Terms           string          `json:"terms,omitempty"`
	Subtotal        Amount          `json:"subtotal"`
	Tax             Amount          `json:"tax"`
	Total           Amount          `json:"total"`
	Notes           string          `json:"notes,omitempty"`
	Items           []LineItem      `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (q Quotation) RecordID() int64 { return q.ID }

// IsPending reports whether the quotation still awaits a client decision
func (q Quotation) IsPending() bool {
	return q.Status == QuotationDraft || q.Status == QuotationSent
}

type Receipt struct {
	ID            int64         `json:"id,omitempty"`
	ReceiptNumber string        `json:"receipt_number,omitempty"`
	Client        int64         `json:"client"`
	ClientName    string        `json:"client_name,omitempty"`
	ClientEmail   string        `json:"client_email,omitempty"`
	Date          *time.Time    `json:"date,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        ReceiptStatus `json:"status,omitempty"`
	Subtotal      Amount        `json:"subtotal"`
	Tax           Amount        `json:"tax"`
	Total         Amount        `json:"total"`
	Notes         string        `json:"notes,omitempty"`
	Items         []LineItem    `json:"items"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (r Receipt) RecordID() int64 { return r.ID }

// Item is a catalog entry. The catalog has no backend endpoint yet.
type Item struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnitPrice   Amount    `json:"unit_price"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (i Item) RecordID() int64 { return i.ID }
