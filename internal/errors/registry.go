package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Routing Errors (N001-N009)
	// ============================================

	"N001": {
		Category: CategoryRouting,
		Message:  "Routable cannot be resolved",
		DocURL:   "https://navigare.dev/docs/errors/N001",
	},
	"N002": {
		Category: CategoryRouting,
		Message:  "Malformed URL",
		DocURL:   "https://navigare.dev/docs/errors/N002",
	},
	"N003": {
		Category: CategoryProtocol,
		Message:  "Page base chain is too deep or cyclic",
		DocURL:   "https://navigare.dev/docs/errors/N003",
	},

	// ============================================
	// Protocol Errors (N010-N019)
	// ============================================

	"N010": {
		Category: CategoryProtocol,
		Message:  "Response body is not a valid page",
		DocURL:   "https://navigare.dev/docs/errors/N010",
	},
	"N011": {
		Category: CategoryProtocol,
		Message:  "Page payload failed validation",
		DocURL:   "https://navigare.dev/docs/errors/N011",
	},
	"N012": {
		Category: CategoryProtocol,
		Message:  "Redirect response has no location header",
		DocURL:   "https://navigare.dev/docs/errors/N012",
	},
	"N013": {
		Category: CategoryProtocol,
		Message:  "Request could not be sent",
		DocURL:   "https://navigare.dev/docs/errors/N013",
	},
	"N014": {
		Category: CategoryProtocol,
		Message:  "Component could not be resolved",
		DocURL:   "https://navigare.dev/docs/errors/N014",
	},

	// ============================================
	// History & Storage Errors (N020-N039)
	// ============================================

	"N020": {
		Category: CategoryHistory,
		Message:  "History state is unreadable",
		DocURL:   "https://navigare.dev/docs/errors/N020",
	},
	"N021": {
		Category: CategoryHistory,
		Message:  "History entry could not be written",
		DocURL:   "https://navigare.dev/docs/errors/N021",
	},
	"N030": {
		Category: CategoryStorage,
		Message:  "Storage backend failure",
		DocURL:   "https://navigare.dev/docs/errors/N030",
	},

	// ============================================
	// Config Errors (N040-N049)
	// ============================================

	"N040": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		DocURL:   "https://navigare.dev/docs/errors/N040",
	},
	"N041": {
		Category: CategoryConfig,
		Message:  "Config file could not be parsed",
		DocURL:   "https://navigare.dev/docs/errors/N041",
	},
	"N042": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		DocURL:   "https://navigare.dev/docs/errors/N042",
	},
}

// Register adds or replaces an error template.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
