package arbor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType tells whether the wallet sent or received funds.
type TransactionType string

const (
	TransactionSend    TransactionType = "send"
	TransactionReceive TransactionType = "receive"
)

// Fork describes the chain a wallet lives on.
type Fork struct {
	Precision int32 `json:"precision"`
}

// KeygenResponse is returned by GET /keygen.
type KeygenResponse struct {
	Success    bool   `json:"success"`
	Phrase     string `json:"phrase"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// RecoverResponse is returned by POST /recover.
type RecoverResponse struct {
	Success    bool   `json:"success"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// WalletResponse is returned by POST /wallet.
type WalletResponse struct {
	Success bool   `json:"success"`
	Address string `json:"address"`
}

// BalanceResponse is returned by POST /balance. Balance is in the smallest unit of the fork.
type BalanceResponse struct {
	Success bool            `json:"success"`
	Balance decimal.Decimal `json:"balance"`
	Fork    Fork            `json:"fork"`
}

// Timestamp is a Unix time in seconds. The service may send it fractional or as a quoted
// number; the fraction is dropped.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*t = 0
		return nil
	}

	seconds, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", data, err)
	}
	*t = Timestamp(seconds.IntPart())
	return nil
}

// Transaction is one entry of a wallet history. Amount is in the smallest unit of the fork.
type Transaction struct {
	Timestamp   Timestamp       `json:"timestamp"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
	Sender      string          `json:"sender"`
}

// TransactionsResponse is returned by POST /transactions, newest first.
type TransactionsResponse struct {
	Success      bool          `json:"success"`
	Transactions []Transaction `json:"transactions"`
	Fork         Fork          `json:"fork"`
}

// SendResponse is returned by POST /send.
type SendResponse struct {
	Success bool            `json:"success"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Reason renders the service error for the user.
func (r *SendResponse) Reason() string {
	if r == nil || len(r.Error) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(r.Error, &text); err == nil {
		return text
	}

	return strings.TrimSpace(string(r.Error))
}

type walletRequest struct {
	PublicKey string `json:"public_key"`
	Fork      string `json:"fork"`
}

type recoverRequest struct {
	Phrase string `json:"phrase"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type sendRequest struct {
	PrivateKey  string      `json:"private_key"`
	Amount      json.Number `json:"amount"`
	Destination string      `json:"destination"`
}
