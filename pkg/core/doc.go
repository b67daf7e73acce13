// Package core defines the shared language of the milestone compiler.
//
// This package contains:
//   - Schema entities (DataType, Field, Schema, Dataset)
//   - Ingest modes and their dedup/versioning policies
//   - The SQL intermediate representation (Expr, TableExpr, Statement)
//   - Compiled plans (GeneratorResult) and the error taxonomy
//   - Dialect configuration (DialectConfig)
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core
