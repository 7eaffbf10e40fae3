package domain

// Placeholder is shown for a name the upstream did not provide.
const Placeholder = "—"

// Name is a display name the upstream sends either as a bare string or as an
// object. The set of variants is closed: ScalarName and StructuredName.
type Name interface {
	isName()
}

// ScalarName is a name sent as a plain JSON string.
type ScalarName string

// StructuredName is a name sent as an object such as
// {"name": "ai", "display_name": "AI"}.
type StructuredName struct {
	Name        string
	DisplayName string
}

func (ScalarName) isName()     {}
func (StructuredName) isName() {}
