// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - POST /signup: registers an account. Body: {"email","password","display_name"}.
//   - POST /sessions: issues a session token. Body: {"email","password"}. The
//     token is returned in the body and also surfaced via the `X-Session-Token`
//     header and a `session_token` cookie.
//   - GET /sessions/current: returns the authenticated principal.
//   - DELETE /sessions/current: revokes the current session and clears the cookie.
//   - GET /rooms, POST /rooms, GET /rooms/{id}, PUT /rooms/{id}, DELETE /rooms/{id}:
//     room catalog endpoints exchanging the `roomDTO` payload defined in
//     room_handler.go. Room creation is open to any authenticated principal;
//     mutations require the room's Admin role.
//   - POST /rooms/{id}/members, PUT /rooms/{id}/members/{email},
//     DELETE /rooms/{id}/members/{email}: membership management, Admin only.
//   - GET /rooms/{id}/bookings, POST /rooms/{id}/bookings,
//     PUT /rooms/{id}/bookings/{bookingID}, DELETE /rooms/{id}/bookings/{bookingID}:
//     booking endpoints exchanging the `bookingDTO` payload defined in
//     booking_handler.go. Conflicting intervals are rejected with 409.
//   - GET /rooms/{id}/bookings/watch: upgrades to a websocket that streams the
//     room's booking list after every mutation.
//
// All endpoints except /signup and POST /sessions require a valid session
// token via the Authorization Bearer header or the `session_token` cookie.
// User-facing error messages are returned in Ukrainian.
package http
