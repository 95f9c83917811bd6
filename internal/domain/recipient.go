package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type DeliveryMethod string

const (
	DeliveryMethodBank DeliveryMethod = "bank"
	DeliveryMethodCard DeliveryMethod = "card"
	DeliveryMethodCash DeliveryMethod = "cash"
)

func (m DeliveryMethod) IsValid() bool {
	switch m {
	case DeliveryMethodBank, DeliveryMethodCard, DeliveryMethodCash:
		return true
	}
	return false
}

// Destination is the method-specific half of a recipient. The set of
// implementations is closed: BankDestination, CardDestination, CashDestination.
type Destination interface {
	Method() DeliveryMethod
	missingFields() []string
}

type BankDestination struct {
	AccountNumber string `json:"accountNumber"`
	BankName      string `json:"bankName,omitempty"`
}

func (BankDestination) Method() DeliveryMethod { return DeliveryMethodBank }

func (d BankDestination) missingFields() []string {
	return collectMissing(field{"accountNumber", d.AccountNumber})
}

type CardDestination struct {
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

func (CardDestination) Method() DeliveryMethod { return DeliveryMethodCard }

func (d CardDestination) missingFields() []string {
	return collectMissing(
		field{"cardNumber", d.CardNumber},
		field{"expiryDate", d.ExpiryDate},
		field{"cvv", d.CVV},
	)
}

// Masked hides all but the last four card digits and drops the CVV.
func (d CardDestination) Masked() CardDestination {
	n := strings.ReplaceAll(d.CardNumber, " ", "")
	if len(n) > 4 {
		n = strings.Repeat("*", len(n)-4) + n[len(n)-4:]
	}
	return CardDestination{CardNumber: n, ExpiryDate: d.ExpiryDate}
}

type CashDestination struct {
	PickupLocation string `json:"pickupLocation"`
	IDNumber       string `json:"idNumber"`
}

func (CashDestination) Method() DeliveryMethod { return DeliveryMethodCash }

func (d CashDestination) missingFields() []string {
	return collectMissing(
		field{"pickupLocation", d.PickupLocation},
		field{"idNumber", d.IDNumber},
	)
}

var requiredByMethod = map[DeliveryMethod][]string{
	DeliveryMethodBank: {"accountNumber"},
	DeliveryMethodCard: {"cardNumber", "expiryDate", "cvv"},
	DeliveryMethodCash: {"pickupLocation", "idNumber"},
}

type RecipientDetails struct {
	Name        string
	Email       string
	Country     string
	Destination Destination
}

// Equal compares every field. Destinations are plain string structs, so
// interface equality compares their contents.
func (d RecipientDetails) Equal(o RecipientDetails) bool {
	return d.Name == o.Name &&
		d.Email == o.Email &&
		d.Country == o.Country &&
		d.Destination == o.Destination
}

// ValidateRecipient reports every empty field required by method, common
// fields first. A destination of another method counts as entirely missing.
func ValidateRecipient(d RecipientDetails, method DeliveryMethod) error {
	required, ok := requiredByMethod[method]
	if !ok {
		return fmt.Errorf("ValidateRecipient: %q: %w", method, ErrInvalidDeliveryMethod)
	}

	missing := collectMissing(
		field{"name", d.Name},
		field{"email", d.Email},
		field{"country", d.Country},
	)

	if d.Destination == nil || d.Destination.Method() != method {
		missing = append(missing, required...)
	} else {
		missing = append(missing, d.Destination.missingFields()...)
	}

	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

type field struct {
	name  string
	value string
}

func collectMissing(fields ...field) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type recipientJSON struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Country     string          `json:"country"`
	Method      DeliveryMethod  `json:"method,omitempty"`
	Destination json.RawMessage `json:"destination,omitempty"`
}

func (d RecipientDetails) MarshalJSON() ([]byte, error) {
	out := recipientJSON{Name: d.Name, Email: d.Email, Country: d.Country}
	if d.Destination != nil {
		raw, err := json.Marshal(d.Destination)
		if err != nil {
			return nil, err
		}
		out.Method = d.Destination.Method()
		out.Destination = raw
	}
	return json.Marshal(out)
}

func (d *RecipientDetails) UnmarshalJSON(b []byte) error {
	var in recipientJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	d.Name, d.Email, d.Country = in.Name, in.Email, in.Country
	d.Destination = nil
	if in.Method == "" {
		return nil
	}

	dest, err := DecodeDestination(in.Method, in.Destination)
	if err != nil {
		return err
	}
	d.Destination = dest
	return nil
}

// DecodeDestination decodes raw into the destination variant for method.
func DecodeDestination(method DeliveryMethod, raw []byte) (Destination, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch method {
	case DeliveryMethodBank:
		var b BankDestination
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case DeliveryMethodCard:
		var c CardDestination
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case DeliveryMethodCash:
		var c CashDestination
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("DecodeDestination: %q: %w", method, ErrInvalidDeliveryMethod)
	}
}

// SavedRecipient is a recipient a user stored for reuse across transfers.
type SavedRecipient struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Nickname       string
	DeliveryMethod DeliveryMethod
	Details        RecipientDetails
	CreatedAt      time.Time
}
