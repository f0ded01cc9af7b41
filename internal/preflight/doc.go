// Package preflight provides readiness checks for the external services
// and filesystem paths that Lantern depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup. Failures are logged loudly but
//     do not prevent startup, because a provider outage should not keep
//     the API from accepting submissions.
//   - The CLI "lantern status" command uses the FromConfig variants to
//     display provider health alongside daemon state.
//
// Checks are gated by configuration: video generation is only probed
// when a Veo key is present.
package preflight
