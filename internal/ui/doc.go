// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [SearchView] : Type a query with live suggestions and browse matching videos
//  2. [CategoryView] : Drill into the category tree, search it, or create a category
//  3. [UploadView] : Fill in video details and watch the upload progress
//  4. [ResultView] : Display the published video or why publishing stopped
//
// The [Model] does not own search or picker state. It observes the search controller and the
// category selector, and any change to them is collapsed into a single refresh message. Upload
// progress flows through a channel from the publisher, as in any long running command.
//
// Notifications from the bus are shown in a status line; ctrl+x dismisses the oldest one.
package ui
