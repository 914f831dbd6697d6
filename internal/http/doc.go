// Package http provides HTTP handlers and middleware for the attendance API.
//
// The router exposes the following endpoints:
//   - POST /auth/login: body {"email","password"}. Response {"success","user","token"}; the
//     token is also set in the HTTP-only `auth-token` cookie (SameSite Strict).
//   - POST /auth/logout: revokes the presented session when possible and clears the cookie.
//   - GET /auth/me, POST /auth/password: profile of the caller and password change.
//   - POST /attendance/clock-in, /attendance/break-start, /attendance/break-end,
//     /attendance/clock-out: state transitions for the caller's current business day.
//   - GET /attendance, /attendance/today, /attendance/summary, /attendance/export: the read
//     surface. Export answers with a CSV or XLSX attachment.
//   - GET /users, POST /users, PUT /users/{id}: user directory exchanging the `userDTO`
//     payload defined in user_handler.go.
//   - POST /admin/attendance/cleanup, GET /settings: administration.
//   - GET /healthz: storage reachability, no authentication.
//
// Every route except login, logout and the health check runs behind RequireSession, which
// accepts the token from `Authorization: Bearer` or the session cookie.
package http
