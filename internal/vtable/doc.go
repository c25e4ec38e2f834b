// Package vtable provides the per-type dispatch tables that let differently
// typed work items live in one homogeneous store. A table binds the relocate,
// invoke and destroy behavior of one concrete item type together with its
// erased footprint, and is created once per type on first use.
package vtable
