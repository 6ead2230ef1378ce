package document

import (
	"fmt"
	"strings"
)

// Kind is the short code the gateway's clients use for a Siigo document family.
type Kind string

const (
	KindPurchaseInvoice Kind = "FC"
	KindDebitNote       Kind = "ND"
	KindSupportDocument Kind = "DS"
	KindPaymentReceipt  Kind = "RP"
	KindSaleInvoice     Kind = "FV"
	KindCreditNote      Kind = "NC"
	KindCashReceipt     Kind = "RC"
	KindAccountingEntry Kind = "CC"
)

var listCollections = map[Kind]string{
	KindPurchaseInvoice: "purchases",
	KindDebitNote:       "purchases",
	KindSupportDocument: "purchases",
	KindPaymentReceipt:  "payment-receipts",
	KindSaleInvoice:     "invoices",
	KindCreditNote:      "credit-notes",
	KindCashReceipt:     "cash-receipts",
	KindAccountingEntry: "accounting-entries",
}

var resourceCollections = map[Kind]string{
	KindPurchaseInvoice: "purchases",
	KindDebitNote:       "debit-notes",
	KindSupportDocument: "support-documents",
	KindPaymentReceipt:  "payment-receipts",
}

// ParseKind normalizes a listing type parameter. Unknown values are rejected.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := listCollections[k]; !ok {
		return "", &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("Tipo de documento no soportado: %q. Valores permitidos: FC, ND, DS, RP, FV, NC, RC, CC", raw),
		}
	}
	return k, nil
}

// ParseResourceKind normalizes the type parameter of single-document routes.
// An empty value means a purchase invoice.
func ParseResourceKind(raw string) (Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return KindPurchaseInvoice, nil
	}
	k := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := resourceCollections[k]; !ok {
		return "", &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("Tipo de documento no soportado: %q. Valores permitidos: FC, ND, DS, RP", raw),
		}
	}
	return k, nil
}

// ListCollection is the Siigo collection that lists documents of kind k.
func (k Kind) ListCollection() string {
	return listCollections[k]
}

// ResourceCollection is the Siigo collection addressed by id for kind k.
func (k Kind) ResourceCollection() string {
	if c, ok := resourceCollections[k]; ok {
		return c
	}
	return "invoices"
}

// FiltersByDocumentType reports whether listings of k share the purchases collection
// and must be narrowed with a document_type parameter.
func (k Kind) FiltersByDocumentType() bool {
	return k == KindPurchaseInvoice || k == KindDebitNote || k == KindSupportDocument
}

func (k Kind) String() string { return string(k) }
