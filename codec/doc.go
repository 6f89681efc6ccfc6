// File: codec/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package codec holds the name-keyed provider registry (§4.3, §9): a
// concrete wire encoding registers itself from its own init(), the
// same package-level-var-plus-Register shape as control's hot-reload
// hooks, generalized from a single global slice into a name-keyed map
// so more than one encoding can coexist.
package codec
