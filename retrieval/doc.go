// Package retrieval implements the knowledge grounding pipeline: it
// embeds a query once, fans the search out across knowledge base
// namespaces, merges and deduplicates the hits, and renders the ranked
// chunks into a bounded context block for the model prompt.
//
// Vector storage is pluggable behind the VectorStore interface. A
// chromem-go backed store and a brute force in-memory store ship with
// the package.
package retrieval
