// Package models defines the domain types shared by the vcms client packages.
//
// The package contains two categories of types:
//
// 1. Backend DTOs, tagged with the backend's JSON field names:
//   - [User], [Credentials], [Registration] : accounts and auth payloads
//   - [Category], [CategoryTree], [NewCategoryRequest] : the category forest
//   - [VideoMetadata], [VideoMetadataRequest], [ChangeLogEntry] : video records and their audit trail
//   - [SearchQuery] : term + category filter, mirrored into URL parameters
//
// 2. Locally persisted entities implementing [Model]:
//   - [PendingUpload] : an uploaded blob whose metadata commit failed
//
// Backend identifiers are integers on the wire; [ID] accepts numbers or strings and keeps them opaque.
package models
