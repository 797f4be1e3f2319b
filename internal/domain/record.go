package domain

// Record is a read-only view of an inventory record (device, virtual machine).
// Attributes holds the record's document as decoded JSON; nested objects are
// maps, so dotted attribute paths like "role.name" or
// "custom_field_data.cmdb_id" can be walked without knowing the host schema.
type Record struct {
	Kind       string
	ID         string
	Attributes map[string]any
}

// SearchField is one configured search field. Enabled fields are resolved
// against a record in their configured order; disabled fields are skipped.
type SearchField struct {
	Name      string
	Attribute string
	Enabled   bool
}

// Term is a search term resolved from a record field.
type Term struct {
	Field string
	Value string
}
