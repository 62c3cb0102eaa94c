// Package noteq is a client for a notes and quiz learning service.
//
// It wires three collaborators behind one App: a REST backend (accounts, notes,
// quiz topics, answers, familiarity scores), an ML service (quiz and topic
// generation) and two client side stores. The local store survives restarts and
// holds the token and persisted caches. The session store holds the state of the
// current quiz attempt.
//
// Features:
//
//   - **Resilient calls**: every idempotent request is retried with exponential backoff.
//   - **TTL caches**: listings and familiarity are cached for 30 seconds, the profile for
//     five minutes, and concurrent lookups of the same key share one request.
//   - **Optimistic notes**: note and subject changes show up at once and are rolled back
//     when the server refuses them.
//   - **Resumable quizzes**: a quiz attempt can be resumed by a later process.
//   - **Pluggable storage**: JSON files, SQLite, PostgreSQL, Redis or memory.
//
// Usage:
//
//	app, err := noteq.New(
//		noteq.WithBackendURL("http://localhost:8000"),
//		noteq.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	if _, err := app.Account.Login(ctx, "ada@example.com", "secret"); err != nil {
//		return err
//	}
//	notes, err := app.Notes.Notes(ctx)
package noteq
