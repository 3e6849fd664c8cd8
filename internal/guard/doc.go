// Package guard decides, for every request, whether the caller may proceed or
// must be redirected.
//
// The decision depends only on whether an identity was presented, the
// caller's role and the request path:
//
//   - anonymous callers may reach public paths and are sent to /sign-in
//     everywhere else;
//   - admins opening /dashboard are sent to /admin/dashboard;
//   - non-admins opening anything under /admin are sent to /dashboard;
//   - signed-in callers opening a public path are sent to their dashboard;
//   - a failed role lookup sends the caller to /error.
//
// The role is fetched once per request and never cached.
package guard
