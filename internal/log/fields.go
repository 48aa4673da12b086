package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldUserID      = "user_id"
	FieldExpenseID   = "expense_id"
	FieldBudgetID    = "budget_id"
	FieldTemplateID  = "template_id"
	FieldCategoryID  = "category_id"
	FieldMonth       = "month"
	FieldAmountCents = "amount_cents"
	FieldDescription = "description"
	FieldCount       = "count"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentStorage      = "storage"
	ComponentLedger       = "ledger"
	ComponentBudgets      = "budgets"
	ComponentMaterializer = "materializer"
	ComponentAnalytics    = "analytics"
	ComponentUsers        = "users"
	ComponentEvents       = "events"
	ComponentWorker       = "worker"
)
