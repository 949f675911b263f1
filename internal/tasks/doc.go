// Package tasks runs operations that span several API calls, with non-blocking progress reporting.
//
// # Settings Sync
//
// [SettingsSync.Sync] fetches the settings schema and the user's overrides concurrently, resolves every key
// (override, else the server default) and writes the result to the local preference cache.
// [SettingsSync.UpdateSetting] writes the cache first and only then the server; a server failure becomes a
// warning on the result.
//
// Sync is an auxiliary consumer of the session: it runs after authentication, and its failures never affect the
// session or block initialization.
//
// # Bulk Export
//
// [TitleExporter.Export] fetches titles with a rate-limited worker pool and writes the ones it got, in request
// order, to a single CSV, Markdown, text or JSON file.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends use select with default, so a slow or absent
// reader never stalls the work.
package tasks
