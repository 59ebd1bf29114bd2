package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

type transactionResponse struct {
	ID              uuid.UUID          `json:"id"`
	AccountID       uuid.UUID          `json:"account_id"`
	Date            string             `json:"date"`
	Amount          decimal.Decimal    `json:"amount"`
	Description     string             `json:"description"`
	MerchantName    string             `json:"merchant_name,omitempty"`
	Memo            string             `json:"memo,omitempty"`
	CheckNumber     string             `json:"check_number,omitempty"`
	ExternalID      string             `json:"external_id,omitempty"`
	Category        string             `json:"category,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	Source          transaction.Source `json:"source"`
	ImportSessionID *uuid.UUID         `json:"import_session_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
}

func ToResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID,
		AccountID:       tx.AccountID,
		Date:            tx.Date.Format(time.DateOnly),
		Amount:          tx.Amount,
		Description:     tx.Description,
		MerchantName:    tx.MerchantName,
		Memo:            tx.Memo,
		CheckNumber:     tx.CheckNumber,
		ExternalID:      tx.ExternalID,
		Category:        tx.Category,
		Notes:           tx.Notes,
		Source:          tx.Source,
		ImportSessionID: tx.ImportSessionID,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

func ToResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx)
	}

	return resp
}
