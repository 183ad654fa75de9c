// Package search runs video searches and search-box autocomplete.
//
// Suggestions are debounced, de-duplicated and dropped for text shorter than the minimum
// length. Searches themselves are driven by the location: submitting navigates to [Path] with
// the term and category as URL parameters, and a bound [Controller] searches whatever that
// location says. Deep links and history therefore behave exactly like typed searches.
package search
