// Package http provides HTTP handlers and middleware for the library API.
//
// The router exposes the following endpoints:
//   - GET /health: liveness probe returning {"status":"ok"}.
//   - POST /api/auth/register: self-service account creation. Body:
//     {"name","email","password"}. Always produces a USER account and issues
//     a session token in the same login-shaped response, so the new member
//     needs no second call.
//   - POST /api/auth/login: issues a session token. Body: {"email","password"}.
//     Response: {"token","expires_at","user"} with the token also surfaced via
//     the `X-Session-Token` header and a `session_token` cookie.
//   - POST /api/auth/logout: revokes the current session token extracted from
//     the Authorization header or session cookie. Returns 204 No Content.
//   - GET /api/auth/me: the authenticated caller's own account.
//   - GET /api/users, POST /api/users: administrator controlled account
//     listing and creation exchanging the `userDTO` payload defined in
//     auth_handler.go.
//   - GET /api/books, GET /api/books/search: public catalog search filtered by
//     `q` (matches title, author or ISBN) and `genre`.
//   - POST /api/books, GET/PUT/DELETE /api/books/{id}: catalog endpoints
//     exchanging the `bookDTO` payload defined in book_handler.go. Reads are
//     public while mutations require admin privileges.
//   - POST /api/loans: borrow a book. Body: {"book_id","due_at"?}. GET
//     /api/loans lists every loan for administrators; GET /api/loans/me lists
//     the caller's own. POST /api/loans/{id}/return closes a loan.
//   - GET /api/logs?limit=N: administrator view of the activity trail.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
