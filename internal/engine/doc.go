// Package engine orchestrates code-chunk execution for a document. It parses
// fenced regions into an ordered chunk set, resolves continuation chains,
// routes runs to the one-shot executor or the session pool, renders captured
// output, and streams per-chunk log lines through a broker while persisting
// run history to the store.
package engine
