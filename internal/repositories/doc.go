// Package repositories implements SQLite persistence for the client's local state.
//
// Key Implementations:
//   - [CredentialRepository] : Credential pairs keyed by profile, backing the sqlite credential store
//   - [ImportRunRepository] : History of CSV import batches
//
// Both expect the schema applied by [shared.RunMigrations].
package repositories
