// Package models defines the records exchanged with the media library API and cached locally.
//
// API records ([User], [Title], [TitleList], [Setting], [UserSetting]) mirror the JSON payloads of the backend.
// [Preference] is the locally resolved value of a [Setting], stored by the preferences repository.
package models
