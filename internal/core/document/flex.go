package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexInt accepts a JSON number or a numeric string. Front ends send ids both ways.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	*f = FlexInt(n)
	return nil
}

func (f FlexInt) Int64() int64 { return int64(f) }

// FlexString accepts a JSON string or number and keeps its textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	*f = FlexString(string(data))
	return nil
}

func (f FlexString) String() string { return string(f) }

// parseAmount reads a JSON number or numeric string. Null, "" and blanks are zero.
func parseAmount(data json.RawMessage) (decimal.Decimal, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return decimal.Zero, nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return decimal.Zero, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return decimal.Zero, nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// parseOptionalAmount is parseAmount for fields that may be left out. An absent or
// null value stays nil.
func parseOptionalAmount(data json.RawMessage) (*decimal.Decimal, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	d, err := parseAmount(data)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (it *ItemInput) UnmarshalJSON(data []byte) error {
	type plain ItemInput
	var aux struct {
		plain
		Quantity json.RawMessage `json:"quantity"`
		Price    json.RawMessage `json:"price"`
		Discount json.RawMessage `json:"discount"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*it = ItemInput(aux.plain)

	var err error
	if it.Quantity, err = parseAmount(aux.Quantity); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	if it.Price, err = parseAmount(aux.Price); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if it.Discount, err = parseOptionalAmount(aux.Discount); err != nil {
		return fmt.Errorf("discount: %w", err)
	}
	return nil
}

func (p *Payment) UnmarshalJSON(data []byte) error {
	type plain Payment
	var aux struct {
		plain
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Payment(aux.plain)

	var err error
	if p.Value, err = parseAmount(aux.Value); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	return nil
}

func (v *VoucherItem) UnmarshalJSON(data []byte) error {
	type plain VoucherItem
	var aux struct {
		plain
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*v = VoucherItem(aux.plain)

	var err error
	if v.Value, err = parseAmount(aux.Value); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	return nil
}

func (v *VoucherPayment) UnmarshalJSON(data []byte) error {
	type plain VoucherPayment
	var aux struct {
		plain
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*v = VoucherPayment(aux.plain)

	var err error
	if v.Value, err = parseAmount(aux.Value); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	return nil
}

func int64Ptr(v int64) *int64 { return &v }
