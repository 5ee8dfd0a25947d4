// Package models defines the domain types shared across the engine.
package models

// TableDescription pairs a table name with its business meaning. The
// descriptions are embedded verbatim into the SQL generation prompt.
type TableDescription struct {
	Name        string
	Description string
}

// TableDescriptions lists every table the engine knows about, in the order
// they are presented to the LLM. The store provisions exactly these tables.
var TableDescriptions = []TableDescription{
	{
		Name: "clients",
		Description: "Contains client information including client_id (primary key), " +
			"client_name, industry, and country.",
	},
	{
		Name: "invoices",
		Description: "Contains invoice records with invoice_id (primary key), client_id (foreign key), " +
			"invoice_date, due_date, status (Paid/Overdue/Draft), currency, and fx_rate_to_usd.",
	},
	{
		Name: "invoice_line_items",
		Description: "Contains line items for invoices with line_id (primary key), invoice_id (foreign key), " +
			"service_name, quantity, unit_price, and tax_rate. " +
			"Line total with tax = quantity * unit_price * (1 + tax_rate).",
	},
}

// TableNames returns the known table names in presentation order.
func TableNames() []string {
	names := make([]string, len(TableDescriptions))
	for i, td := range TableDescriptions {
		names[i] = td.Name
	}
	return names
}

// ExampleQuestions are canonical questions served to UI collaborators.
var ExampleQuestions = []string{
	"List all clients with their industries.",
	"Which clients are based in the UK?",
	"List all invoices issued in March 2024 with their statuses.",
	"Which invoices are currently marked as 'Overdue'?",
	"For each service_name, how many line items are there?",
	"List all invoices for Acme Corp with their invoice IDs, dates, and statuses.",
	"For invoice I1001, list all line items with service name, quantity, unit price, tax rate, and line total.",
	"Which client has the highest total billed amount in 2024?",
}
