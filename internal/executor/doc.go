// Package executor implements a depth-first, concurrent query executor that
// delegates record retrieval to one host-supplied handler per compound type.
//
// # Overview
//
// A query arrives as a tree of query.Node values already validated against
// the type graph. The executor walks that tree from the root:
//
//  1. Partition the node's children into scalar and compound fields.
//  2. Build the filter descriptor from every scalar child carrying a literal
//     match. An empty descriptor means "no constraint", never "match nothing".
//  3. Call the node type's handler with the requested attributes (scalar
//     fields, compound fields and the identity field) and the filter.
//  4. Resolve every compound child sub-tree recursively.
//  5. For each record of step 3, replace the identities held by each compound
//     attribute with the child records carrying those identities, in the
//     order the child handler returned them.
//  6. Drop the record when a required compound field correlated to nothing.
//
// Steps 3 and 4 run concurrently in an errgroup; the node joins all of them
// before step 5. The first failure cancels the group's context and fails the
// node, and with it every ancestor. There is no partial success and no retry.
//
// # Identity
//
// Records are correlated through an identity attribute (DefaultIdentityField
// unless configured). It is always requested from handlers but only appears
// in the output when the query asks for it by name. Identities compare by
// value: numbers of different Go types that hold the same value are equal.
//
// # Filters
//
// Handlers may implement FilterCapability to declare the combinations of
// filter fields they support. Unsupported combinations are not sent to the
// handler; the type resolves to no records, which is what a handler that
// does not understand a filter would answer anyway.
//
// # Registry
//
// NewRegistry validates the handler map against the schema before any query
// runs: every compound type needs a handler, and no handler may be keyed by
// an unknown or scalar type. A missing handler is therefore a configuration
// error at start-up, never a lookup failure during a query.
//
// # Concurrency
//
// The schema, the registry and the executor are read-only once built and are
// shared by concurrent queries. Each resolution builds fresh records; child
// records may be shared between several parents of the same result and must
// be treated as immutable by callers.
package executor
