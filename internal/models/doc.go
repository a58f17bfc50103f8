// Package models defines the records exchanged with the artist management API.
//
// The package contains three categories of types:
//
// 1. Records: entities returned by the API
//   - [User] : Account holders with role and contact details
//   - [Artist] : Artists with release history
//   - [Music] : Tracks belonging to an artist
//
// 2. Inputs: request bodies validated before they are sent
//   - [RegisterInput], [LoginInput], [UserUpdate]
//   - [ArtistInput], [ArtistUpdate]
//   - [MusicInput]
//
// 3. Paging: [PageRequest] for list queries and [Pagination] for the metadata lists return.
//
// [ImportRun] is the only locally persisted entity; it records the outcome of a CSV import batch.
package models
