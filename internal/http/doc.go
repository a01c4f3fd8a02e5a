// Package http exposes the scheduler over a local JSON API.
//
// The router serves the following endpoints:
//   - GET /schedules, POST /schedules: list schedules in time-of-day order or
//     create one. Payloads are the scheduleDTO and scheduleRequest types in
//     schedule_handler.go; creation responses carry advisory conflict warnings.
//   - GET /schedules/{id}, PUT /schedules/{id} ({"date_time"}), DELETE
//     /schedules/{id}.
//   - PUT /schedules/{id}/enabled ({"enabled"}) and POST /schedules/{id}/run,
//     which answers 202 unless called with wait=true.
//   - GET /houses, GET /houses/{id}/devices: proxied from the remote API.
//   - GET /session, POST /session ({"email","password"}), DELETE /session.
//   - GET /preferences, PUT /preferences ({"language","theme","house_id"}).
//   - GET /notifications?lang=fr&limit=50: history rendered in a language.
//
// Every endpoint except /healthz can be guarded by RequireAPIKey.
package http
