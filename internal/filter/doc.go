// Package filter implements the inclusion filters applied to the roster
// before partitioning. It supports filtering by headquarters location,
// canonical employee band, and industry code.
//
// Each dimension is a set-membership predicate: an empty selection passes
// every entity, a non-empty selection keeps the entities whose value is one
// of the selected values. Dimensions are combined with logical AND.
//
// The package is built around the [Filter] interface and [Chain] type, which
// allow composable, ordered filter application.
package filter
