package enums

import "fmt"

// DocStatus is the three-valued lifecycle flag carried by business documents.
type DocStatus int16

const (
	DocStatusDraft     DocStatus = 0
	DocStatusSubmitted DocStatus = 1
	DocStatusCancelled DocStatus = 2
)

var docStatusNames = map[DocStatus]string{
	DocStatusDraft:     "draft",
	DocStatusSubmitted: "submitted",
	DocStatusCancelled: "cancelled",
}

// String implements fmt.Stringer.
func (d DocStatus) String() string {
	if name, ok := docStatusNames[d]; ok {
		return name
	}
	return fmt.Sprintf("docstatus(%d)", int16(d))
}

// IsValid reports whether the value is a known DocStatus.
func (d DocStatus) IsValid() bool {
	_, ok := docStatusNames[d]
	return ok
}

// IsActive reports whether the document still occupies its customer's
// active-order slot.
func (d DocStatus) IsActive() bool {
	return d < DocStatusCancelled
}
