// Package field derives field descriptors from record types.
//
// A record type is any Go struct. Extract walks its exported fields in
// declaration order and produces one Descriptor per field, which the
// options package uses as the raw input of configuration resolution.
//
// Field names follow database conventions (snake_case) and are derived from
// the Go field name unless the "model" tag names them explicitly:
//
//	type Person struct {
//		ID             int    `model:",id"`   // id, identifier
//		Name           string                  // name
//		ComputersOwned int                     // computers_owned
//		Nick           string `model:"alias"` // alias
//		Secret         string `model:"-"`     // not mapped
//	}
//
// # Tag Options
//
// The only tag option is "id", which marks the field as the record
// identifier. Identifier fields are excluded from INSERT column lists and
// used as ON CONFLICT targets by the database integration.
//
// # Nested Records
//
// Fields whose type is itself a record (a struct that is not time.Time and
// does not implement driver.Valuer or sql.Scanner) are reported by
// Descriptor.IsRecord. Integrations use it to keep such fields out of
// column lists.
package field
