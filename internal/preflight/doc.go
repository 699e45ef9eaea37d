// Package preflight provides readiness checks for the external services
// and filesystem paths a render run depends on.
//
// These checks run in two contexts:
//   - The worker runs RunAll before accepting queue work so a doomed run
//     fails in seconds instead of after minutes of rendering.
//   - The CLI "reelsmith status" command renders individual results to
//     show service health.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
