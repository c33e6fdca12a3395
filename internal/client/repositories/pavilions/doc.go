// Package pavilions persists the local mirror of the remote "padiglione"
// collection. Rows are keyed by the building code; the position is kept as
// "lat,lng" text and is empty when unknown.
package pavilions
