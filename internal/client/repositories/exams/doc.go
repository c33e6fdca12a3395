// Package exams persists the local mirror of the remote "esame" collection.
//
// Rows are keyed by the remote document id and written only by the
// synchronizer, with replace-on-conflict semantics. Exam dates are stored
// as RFC3339 UTC text; rows written in the older "yyyy-MM-dd HH:mm"
// local-time form are still readable and are interpreted in the location
// given to NewSQLiteRepository.
//
// Typical Usage
//
//	repo := exams.NewSQLiteRepository(db, loc)
//	_ = repo.Upsert(ctx, exam)
//	all, _ := repo.GetAll(ctx)
//	one, _ := repo.GetByID(ctx, "E1")
package exams
