// Package sanitizer normalizes free-text request fields before validation and
// storage.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input collapses to an empty string rather than
// an error; the validators decide whether empty is acceptable.
//
//   - Text (notes, names, rooms, locations): trim and collapse whitespace.
//   - Labels (class type, session type, level): lowercase, runs of anything
//     other than letters and digits become a single underscore, so
//     "Hot  Yoga" and "hot-yoga" both become "hot_yoga".
package sanitizer
