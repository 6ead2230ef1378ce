package document

// ConsecutiveSanityBound caps how far a reported consecutive may run ahead of the number
// computed from existing documents before it is considered garbage.
const ConsecutiveSanityBound = 10000

// DocumentType is the subset of a Siigo document-type configuration the gateway reads.
type DocumentType struct {
	ID              FlexInt    `json:"id"`
	Code            FlexString `json:"code"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Active          bool       `json:"active"`
	AutomaticNumber bool       `json:"automatic_number"`
	Consecutive     FlexInt    `json:"consecutive"`
}

// SelectDocumentType returns the configuration with the wanted id when it is active,
// otherwise the first active configuration. It returns nil when none is active.
func SelectDocumentType(types []DocumentType, wanted int64) *DocumentType {
	for i := range types {
		if types[i].ID.Int64() == wanted && types[i].Active {
			return &types[i]
		}
	}
	for i := range types {
		if types[i].Active {
			return &types[i]
		}
	}
	return nil
}

// Summary is the part of a listed document needed for numbering.
type Summary struct {
	ID       FlexString  `json:"id"`
	Document DocumentRef `json:"document"`
	Number   FlexInt     `json:"number"`
}

// NextNumber is one past the highest number used by documents of the given type.
func NextNumber(docs []Summary, documentID int64) int64 {
	var highest int64
	for _, d := range docs {
		if d.Document.ID.Int64() != documentID {
			continue
		}
		if n := d.Number.Int64(); n > highest {
			highest = n
		}
	}
	return highest + 1
}

// ReconcileConsecutive picks the number to use given the computed candidate and the
// consecutive the document type reports. A plausible reported value wins when larger;
// one at or beyond computed+ConsecutiveSanityBound is ignored.
func ReconcileConsecutive(computed, reported int64) int64 {
	if reported > 0 && reported < computed+ConsecutiveSanityBound {
		return max(reported, computed)
	}
	return computed
}
