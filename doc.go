// Package denorm maintains denormalized aggregate fields: a parent record
// carries a count, sum, min, or max over the set of child records that
// reference it, and the engine keeps that value exact by reacting to child
// lifecycle events instead of recomputing on read.
//
// The engine is a library surface. It never owns persistence: all reads and
// writes go through the Store interface, which a host data-access layer
// implements (gormstore provides one for GORM models). Incremental updates
// are always expressed relative to the stored value ("field = field + ?"),
// never as read-modify-write, so concurrent writers cannot lose updates.
package denorm
