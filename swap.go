package hxembed

// SwapMode defines htmx swap strategies for how a composed embed replaces
// its placeholder.
//
// See https://htmx.org/attributes/hx-swap/ for visual examples.
type SwapMode string

const (
	// SwapOuter replaces the placeholder including its tag (outerHTML).
	// Lazy and Defer placeholders use it.
	SwapOuter SwapMode = "outerHTML"

	// SwapInner replaces only the placeholder's contents (innerHTML).
	SwapInner SwapMode = "innerHTML"
)
