// Package preferences persists the per-user exam statuses.
//
// The (esame_codice, utente_username) pair is unique. Upsert replaces the
// status on conflict and keeps the row id; InsertIfAbsent never touches an
// existing row, which is what default materialization needs so that it
// cannot overwrite a status the user chose in the meantime.
package preferences
