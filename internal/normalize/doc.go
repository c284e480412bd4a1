// Package normalize maps raw spreadsheet tables onto the canonical
// production-record schema and validates the result.
//
// The package is organized into two stages:
//
// 1. Normalizer: discovers the header row, maps raw columns to registry
// ColumnSpecs (exact synonym match first, then bounded Levenshtein
// distance), and coerces cell values to their declared types. Coercion
// failures leave nil fields; they never abort a row.
//
// 2. Validator: enforces the record invariants (required fields, weight
// range, enum membership, no future dates) and splits the input into valid
// CanonicalRecords and rejections that carry every violated rule.
//
// Both stages are pure functions of their inputs. Table-level failures are
// reported as *NormalizationError with a machine-readable reason code;
// record-level problems are data, not errors.
package normalize
