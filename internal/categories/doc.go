// Package categories implements the category picker and helpers over the category forest.
//
// # Selector
//
// [Selector] has two modes. Browsing walks the tree one level at a time: clicking a node with
// children drills into it and pushes a [HistoryEntry]; [Selector.NavigateUp] pops one. Searching
// shows backend matches for typed text (or a local prefix filter for very short text).
//
// Typed text is debounced and de-duplicated. Each backend request is numbered and only the
// newest request may update state, whatever order responses arrive in. Editing the text away
// from the chosen category's name clears the choice immediately, before any search runs.
//
// Choosing from search results keeps the typed text; choosing a leaf while browsing clears it.
// Dismissing the picker clears the text but never the choice.
package categories
