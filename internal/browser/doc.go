// Package browser runs named playwright sessions and exposes them as a set of
// tools (navigate, click, hover, screenshot, log inspection) invoked by name
// with JSON arguments.
//
// Sessions are created by a Launcher, tracked by a Manager that enforces a
// session limit and closes idle sessions, and driven through the narrow Page
// interface so tools can be exercised without a real browser.
package browser
