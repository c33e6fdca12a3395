// Package models defines the campus entities shared by the Insubria Survive
// client and server: exams, lessons, pavilions, per-user exam preferences,
// the remote document envelope and the decoders that turn remote documents
// into entities.
package models
