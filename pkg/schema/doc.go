// Package schema validates collected slot values against declarative rules.
//
// A node's params may carry validation_rules keyed by slot name:
//
//	validation_rules:
//	  age:   {type: int, required: true, min_value: 18, max_value: 120}
//	  email: {type: email}
//	  plan:  {allowed_values: [basic, pro]}
//	  code:  {pattern: "^[A-Z]{3}[0-9]{3}$", min_length: 6, max_length: 6}
//
// ParseRules decodes that block and Rules.Validate checks slot values, returning
// an *AggregateError with one *ValidationError per failed constraint.
//
// Values typically arrive as text from an NLU service, so numeric types accept
// numeric strings.
package schema
