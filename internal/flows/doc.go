// Package flows holds the orchestrators behind the engine's token
// operations: issuance, reissue, refresh exchange and logout.
//
// Each Run function takes a typed dependency struct and returns a result
// carrying either tokens or a FailureKind the engine maps to its public
// errors, metrics and audit events. Flows hold no state between calls and
// never import the root package. All store and token work goes through the
// dependency interfaces, which *cache.Writer, *cache.Reader, *cache.Deleter
// and *jwt.Manager satisfy.
package flows
